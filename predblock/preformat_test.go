package predblock

import (
	"testing"

	"github.com/decisionpatterns/arborist/internal/rferr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSignature_IdenticalOK(t *testing.T) {
	sig := Signature{
		PredMap: map[int]string{0: "color"},
		Level:   map[int][]string{0: {"x", "y", "z"}},
	}
	drifted, err := CheckSignature(sig, sig)
	require.NoError(t, err)
	assert.Empty(t, drifted)
}

func TestCheckSignature_PredMapMismatchFatal(t *testing.T) {
	train := Signature{PredMap: map[int]string{0: "color"}}
	predictTime := Signature{PredMap: map[int]string{0: "shape"}}
	_, err := CheckSignature(train, predictTime)
	require.Error(t, err)
	assert.True(t, rferr.Of(err, rferr.SignatureMismatch))
}

func TestCheckSignature_LevelDriftIsWarningNotFatal(t *testing.T) {
	train := Signature{
		PredMap: map[int]string{0: "color"},
		Level:   map[int][]string{0: {"x", "y", "z"}},
	}
	predictTime := Signature{
		PredMap: map[int]string{0: "color"},
		Level:   map[int][]string{0: {"x", "y", "w"}},
	}
	drifted, err := CheckSignature(train, predictTime)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, drifted)
}

func TestProxyLevel(t *testing.T) {
	assert.Equal(t, uint32(4), ProxyLevel(3))
}
