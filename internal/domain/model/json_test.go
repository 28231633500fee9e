package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalizedText_Get_ExactMatch(t *testing.T) {
	lt := LocalizedText{"en": "Widget", "ja": "ウィジェット"}
	assert.Equal(t, "ウィジェット", lt.Get("ja"))
	assert.Equal(t, "Widget", lt.Get("en"))
}

func TestLocalizedText_Get_FallbackToEnglish(t *testing.T) {
	lt := LocalizedText{"en": "Widget"}
	assert.Equal(t, "Widget", lt.Get("fr"))
}

func TestLocalizedText_Get_FallbackToAnyValue(t *testing.T) {
	lt := LocalizedText{"ja": "ウィジェット"}
	assert.Equal(t, "ウィジェット", lt.Get("fr"))
}

func TestLocalizedText_Get_Empty(t *testing.T) {
	assert.Equal(t, "", LocalizedText{}.Get("en"))
	assert.Equal(t, "", LocalizedText(nil).Get("en"))
}

func TestLocalizedText_Scan_FromBytes(t *testing.T) {
	var lt LocalizedText
	assert.NoError(t, lt.Scan([]byte(`{"en":"Widget"}`)))
	assert.Equal(t, "Widget", lt.Get("en"))
}

func TestJSONMap_Scan_Null(t *testing.T) {
	m := JSONMap{"k": "v"}
	assert.NoError(t, m.Scan(nil))
	assert.Nil(t, m)
}
