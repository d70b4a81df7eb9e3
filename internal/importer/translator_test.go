package importer

import (
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestParseIDList(t *testing.T) {
	assert.Nil(t, ParseIDList(""))
	assert.Equal(t, []int64{1, 2, 30}, ParseIDList("1|2|30"))
	assert.Equal(t, []int64{4, 5}, ParseIDList("|4||x| 5 |"))
}

func TestTranslatorResolve(t *testing.T) {
	tr := NewTranslator(StageTags)
	tr.Record(1, 101)
	tr.Record(2, 2)

	id, ok := tr.Resolve(1)
	assert.True(t, ok)
	assert.Equal(t, int64(101), id)
	_, ok = tr.Resolve(3)
	assert.False(t, ok)
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, "tags", tr.Scope())

	assert.Equal(t, []int64{2, 101}, tr.ResolveAll([]int64{9, 2, 1, 2}))
	first, ok := tr.ResolveFirst([]int64{9, 2, 1})
	assert.True(t, ok)
	assert.Equal(t, int64(2), first)
	_, ok = tr.ResolveFirst([]int64{9})
	assert.False(t, ok)
}

func TestProperty_TranslatorAndIDList(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("recorded ids resolve, others are absent", prop.ForAll(
		func(sources []int64, lookup int64) bool {
			tr := NewTranslator(StageFolders)
			recorded := map[int64]bool{}
			for _, s := range sources {
				tr.Record(s, s+1)
				recorded[s] = true
			}
			got, ok := tr.Resolve(lookup)
			if recorded[lookup] {
				return ok && got == lookup+1
			}
			return !ok
		},
		gen.SliceOf(gen.Int64Range(0, 50)),
		gen.Int64Range(0, 60),
	))

	properties.Property("pipe-joined ids parse back", prop.ForAll(
		func(ids []int64) bool {
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.FormatInt(id, 10)
			}
			got := ParseIDList(strings.Join(parts, "|"))
			if len(got) != len(ids) {
				return false
			}
			for i := range ids {
				if got[i] != ids[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 1<<40)),
	))

	properties.TestingRun(t)
}
