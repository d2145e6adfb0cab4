package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupportAudioExt(t *testing.T) {
	assert.True(t, SupportAudioExt(".wav"))
	assert.True(t, SupportAudioExt(".mp3"))
	assert.True(t, SupportAudioExt(".m4a"))
	assert.False(t, SupportAudioExt(".txt"))
	assert.False(t, SupportAudioExt(""))
}

func TestMakeValidateFileName(t *testing.T) {
	f, err := MakeValidateFileName("id1", "olia.wav")
	assert.Nil(t, err)
	assert.Equal(t, "id1/olia.wav", f)

	f, err = MakeValidateFileName("", "olia.wav")
	assert.Nil(t, err)
	assert.Equal(t, "olia.wav", f)

	_, err = MakeValidateFileName("id1", "")
	assert.NotNil(t, err)
	_, err = MakeValidateFileName("id1", "..")
	assert.NotNil(t, err)
}
