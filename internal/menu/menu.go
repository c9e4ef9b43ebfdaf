// Package menu implements the interactive source selection
package menu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Entry is one selectable source
type Entry struct {
	Name        string
	Description string
}

func header(out io.Writer, text string) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(out, "\n%s\n  %s\n%s\n\n", rule, text, rule)
}

func printMenu(out io.Writer, entries []Entry) {
	header(out, "Price Crawler - Source Selection")
	fmt.Fprint(out, "Please choose a source to run:\n\n")
	for i, e := range entries {
		fmt.Fprintf(out, "  %d. %s\n", i+1, e.Description)
	}
	fmt.Fprint(out, "\n  a. Run ALL sources\n  q. Quit\n\n")
}

// Prompt asks until the operator picks sources or quits. It returns the
// selected names in menu order, or nil when the operator quit or the input
// ended.
func Prompt(in io.Reader, out io.Writer, entries []Entry) []string {
	scanner := bufio.NewScanner(in)
	for {
		printMenu(out, entries)
		fmt.Fprint(out, "Enter your choice (e.g. 1, 1,3, a, q): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return nil
		}

		choice := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if choice == "q" {
			fmt.Fprint(out, "\nGoodbye!\n")
			return nil
		}

		selected, err := Parse(choice, entries)
		if err == nil {
			return selected
		}
		fmt.Fprintf(out, "\n[ERROR] %v. Please try again.\n", err)
	}
}

// Parse turns a choice like "2", "1,3" or "a" into source names. Duplicates
// are dropped and the result follows menu order.
func Parse(choice string, entries []Entry) ([]string, error) {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if choice == "" {
		return nil, fmt.Errorf("empty choice")
	}

	picked := make([]bool, len(entries))
	if choice == "a" {
		for i := range picked {
			picked[i] = true
		}
	} else {
		for _, part := range strings.Split(choice, ",") {
			part = strings.TrimSpace(part)
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 || n > len(entries) {
				return nil, fmt.Errorf("invalid choice '%s'", part)
			}
			picked[n-1] = true
		}
	}

	var names []string
	for i, ok := range picked {
		if ok {
			names = append(names, entries[i].Name)
		}
	}
	return names, nil
}
