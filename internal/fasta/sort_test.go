package fasta

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffsites/ffsites/internal/cds"
)

func TestSorter_Sort(t *testing.T) {
	content := `>c loc=X:50..55; parent=FBgn3;
CCACCA
>b loc=2L:complement(200..205); parent=FBgn2;
GGAGGA
>a loc=2L:100..105; parent=FBgn1;
CTGCTG
>dup loc=2L:100..108; parent=FBgn4;
CTGCTGCTG
>short loc=2L:100..102; parent=FBgn5;
CTG
>het loc=2LHet:1..6; parent=FBgn6;
AAAAAA
`
	var out bytes.Buffer
	stats, err := NewSorter().Sort(NewReader(strings.NewReader(content)), &out)
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Read)
	assert.Equal(t, 3, stats.Written)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 1, stats.Skipped)

	want := `>dup loc=2L:100..108; parent=FBgn4;
CTGCTGCTG
>b loc=2L:complement(200..205); parent=FBgn2;
GGAGGA
>c loc=X:50..55; parent=FBgn3;
CCACCA
`
	assert.Equal(t, want, out.String())
}

func TestSorter_OutputIsSortedByArm(t *testing.T) {
	content := `>x loc=X:1..3; parent=FBgnX;
CCA
>four loc=4:1..3; parent=FBgn4;
CCA
>r loc=3R:1..3; parent=FBgnR;
CCA
>l loc=2R:1..3; parent=FBgnL;
CCA
`
	var out bytes.Buffer
	_, err := NewSorter().Sort(NewReader(strings.NewReader(content)), &out)
	require.NoError(t, err)

	var order []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, ">") {
			order = append(order, strings.Fields(line)[0])
		}
	}
	assert.Equal(t, []string{">l", ">r", ">four", ">x"}, order)
}

func TestSorter_Errors(t *testing.T) {
	t.Run("bad range", func(t *testing.T) {
		_, err := NewSorter().Sort(NewReader(strings.NewReader(">a loc=2L:5..1; parent=FBgn1;\nACG\n")), &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, cds.ErrHeaderFormat))

		var ce *cds.Error
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, 1, ce.Line)
	})

	t.Run("missing sequence", func(t *testing.T) {
		_, err := NewSorter().Sort(NewReader(strings.NewReader(">a loc=2L:1..3; parent=FBgn1;\n")), &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, cds.ErrStreamTruncated))
	})
}
