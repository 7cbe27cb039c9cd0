package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "Advance payment", Text("  <b>Advance</b>\n\t payment "))
	assert.Equal(t, "alert(1)", Text("&lt;script&gt;alert(1)&lt;/script&gt;"))
	assert.Equal(t, "Tom & Jerry", Text("Tom &amp; Jerry"))
}

func TestTextPtr(t *testing.T) {
	assert.Nil(t, TextPtr(nil))
	in := " <i>Ana</i> "
	assert.Equal(t, "Ana", *TextPtr(&in))
}
