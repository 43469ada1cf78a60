package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRows(t *testing.T) {
	input := strings.Join([]string{
		"title,author,isbn,genre,year,publisher,copies,language",
		`"Cien Años de Soledad",Gabriel García Márquez,9780140449136,Novel,1967,Sudamericana,3`,
		"The Odyssey,Homer,978-0-306-40615-7,Epic,1999,Penguin,2,English",
		"Short,Row,123",
		"Bad Year,Someone,9780451524935,Novel,nineteen,Penguin,1",
		"Bad Copies,Someone,9780451524935,Novel,1949,Penguin,lots",
	}, "\n")

	rows, errs := parseRows(strings.NewReader(input))
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].line)
	assert.Equal(t, "Cien Años de Soledad", rows[0].book.Title)
	assert.Equal(t, 1967, rows[0].book.Year)
	assert.Equal(t, 3, rows[0].book.TotalCopies)
	assert.Empty(t, rows[0].book.Language)
	assert.Equal(t, "English", rows[1].book.Language)

	require.Len(t, errs, 3)
	assert.Equal(t, 4, errs[0].line)
	assert.Contains(t, errs[0].Error(), "line 4")
	assert.Contains(t, errs[1].Error(), "year")
	assert.Contains(t, errs[2].Error(), "copies")
}

func TestParseRowsWithoutHeader(t *testing.T) {
	rows, errs := parseRows(strings.NewReader("The Odyssey,Homer,9780140449136,Epic,1999,Penguin,2\n"))
	assert.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].line)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "Cien Añ...", truncateString("Cien Años de Soledad", 10))
	assert.Equal(t, "Ci", truncateString("Cien", 2))
}
