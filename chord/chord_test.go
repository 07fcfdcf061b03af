package chord

import (
	"fmt"
	"testing"

	"github.com/jsphweid/tunator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSlotsSortsAndDeduplicates(t *testing.T) {
	notes, err := FromSlots([]int{51, 10, 51, 3})
	require.NoError(t, err)
	assert.Equal(t, model.Notes{3, 10, 51}, notes)

	_, err = FromSlots([]int{256})
	assert.Error(t, err)
}

func TestCreateChordKey(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("3-7-10", CreateChordKey(model.Notes{10, 3, 7}))
	assert.Equal("", CreateChordKey(nil))
}

func TestCreateChordKeyLeavesInputAlone(t *testing.T) {
	notes := model.Notes{10, 3}
	CreateChordKey(notes)
	assert.Equal(t, model.Notes{10, 3}, notes)
}

func TestChordSerializeDeserialize(t *testing.T) {
	cases := []model.Notes{{}, {51}, {1, 2, 3}, {0, 119}}
	for _, notes := range cases {
		name := fmt.Sprintf("test serialize/deserialize for notes: %v", notes)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, notes, Deserialize(Serialize(notes)))
		})
	}
}

func TestMultiHot(t *testing.T) {
	assert := assert.New(t)
	v := []float32{1, 1, 0, 0, 0}
	MultiHot(v, model.Notes{2, 4})
	assert.Equal([]float32{0, 0, 1, 0, 1}, v)
}
