package crawler

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyHandlers(t *testing.T) {
	doc := createDocument(`<html><body><p class="b">second</p><p class="c">third</p></body></html>`)
	require.NotNil(t, doc)

	calls := 0
	counting := func(s *goquery.Selection) string {
		calls++
		return "late"
	}

	got := applyHandlers(doc.Selection, []ElementHandler{
		nil,
		textHandler("p.a"),
		textHandler("p.b"),
		counting,
	})
	assert.Equal(t, "second", got)
	assert.Equal(t, 0, calls, "handlers after the first hit are not run")

	assert.Equal(t, "", applyHandlers(doc.Selection, nil))
	assert.Equal(t, "late", applyHandlers(doc.Selection, []ElementHandler{textHandler("p.x"), counting}))
}

func TestFirstMatch(t *testing.T) {
	doc := createDocument(`<html><body>
		<div class="offer">one</div>
		<div class="offer">two</div>
		<li class="item">three</li>
	</body></html>`)
	require.NotNil(t, doc)

	assert.Equal(t, 2, firstMatch(doc.Selection, Chain{"section.offers", "div.offer", "li.item"}).Length())
	assert.Equal(t, 1, firstMatch(doc.Selection, Chain{"li.item", "div.offer"}).Length())
	assert.Equal(t, 0, firstMatch(doc.Selection, Chain{"table"}).Length())
	assert.Equal(t, 0, firstMatch(doc.Selection, nil).Length())

	assert.Equal(t, "one", visibleText(pick(doc.Selection, Chain{"div.offer"})))
	assert.Same(t, doc.Selection, pick(doc.Selection, nil))
}

func TestVisibleText(t *testing.T) {
	doc := createDocument(`<html><body><a href="/p">
		Anker  SOLIX<script>var x = 1;</script><style>.a{}</style>
		<span>Solarbank&nbsp;2</span>
	</a></body></html>`)
	require.NotNil(t, doc)

	assert.Equal(t, "Anker SOLIX Solarbank 2", visibleText(doc.Find("a")))
	assert.Equal(t, "", visibleText(doc.Find("table")))
}

func TestCreateDocument(t *testing.T) {
	assert.Nil(t, createDocument(""))
	assert.Nil(t, createDocument("  \n "))
	assert.NotNil(t, createDocument("<p>unclosed"))
}

func TestTitleTooShort(t *testing.T) {
	assert.True(t, titleTooShort("", 6))
	assert.True(t, titleTooShort("Größe", 6))
	assert.False(t, titleTooShort("Größen", 6))
	assert.False(t, titleTooShort("x", 0))
}
