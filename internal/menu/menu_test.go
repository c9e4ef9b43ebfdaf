package menu

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entries = []Entry{
	{Name: "idealo", Description: "idealo.de - Price comparison portal"},
	{Name: "kleineskraftwerk", Description: "kleineskraftwerk.de - Small power station products"},
	{Name: "priwatt", Description: "priwatt.de - Balcony power plant products"},
}

func TestParse(t *testing.T) {
	tests := []struct {
		choice  string
		want    []string
		wantErr bool
	}{
		{choice: "1", want: []string{"idealo"}},
		{choice: " 3 ", want: []string{"priwatt"}},
		{choice: "3,1", want: []string{"idealo", "priwatt"}},
		{choice: "2, 2", want: []string{"kleineskraftwerk"}},
		{choice: "A", want: []string{"idealo", "kleineskraftwerk", "priwatt"}},
		{choice: "4", wantErr: true},
		{choice: "0", wantErr: true},
		{choice: "1,x", wantErr: true},
		{choice: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.choice, func(t *testing.T) {
			got, err := Parse(tt.choice, entries)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromptRepromptsOnInvalidChoice(t *testing.T) {
	var out bytes.Buffer
	got := Prompt(strings.NewReader("9\n2\n"), &out, entries)

	assert.Equal(t, []string{"kleineskraftwerk"}, got)
	assert.Contains(t, out.String(), "[ERROR] invalid choice '9'. Please try again.")
	assert.Equal(t, 2, strings.Count(out.String(), "Source Selection"))
	assert.Contains(t, out.String(), "  3. priwatt.de - Balcony power plant products")
}

func TestPromptQuit(t *testing.T) {
	var out bytes.Buffer
	assert.Nil(t, Prompt(strings.NewReader("q\n"), &out, entries))
	assert.Contains(t, out.String(), "Goodbye!")

	out.Reset()
	assert.Nil(t, Prompt(strings.NewReader(""), &out, entries))
}
