package depfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/depfile"
)

func TestParseBasic(t *testing.T) {
	d, err := depfile.Parse("a.d", "a.o: a.cc a.hh\n")
	require.NoError(t, err)
	assert.Equal(t, "a.o", d.ObjPath)
	assert.Equal(t, "a.cc", d.SrcPath)
	assert.Equal(t, []string{"a.cc", "a.hh"}, d.ExtraDeps)
}

func TestParseLineContinuation(t *testing.T) {
	d, err := depfile.Parse("a.d", "a.o : a.cc header1.hh \\\n header2.hh header3.hh\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.cc", "header1.hh", "header2.hh", "header3.hh"}, d.ExtraDeps)
}

func TestParseNoColonFails(t *testing.T) {
	_, err := depfile.Parse("a.d", "a.o a.cc\n")
	assert.Error(t, err)
	var malformed *depfile.MalformedDepfileError
	assert.ErrorAs(t, err, &malformed)
}

func TestParseEmptyDepsFails(t *testing.T) {
	_, err := depfile.Parse("a.d", "a.o:\n")
	assert.Error(t, err)
}
