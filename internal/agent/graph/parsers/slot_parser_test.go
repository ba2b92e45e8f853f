package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/autoimport-pro/server/internal/core/error"
)

func TestParseSlotsPlainJSON(t *testing.T) {
	res, err := ParseSlots(`{"brand":"Toyota","model":"Camry","budget_max":"3 млн","timeline":"срочно","phone":"8 916 123 45 67"}`, "RU")
	require.NoError(t, err)

	s := res.Slots
	require.NotNil(t, s.Brand)
	assert.Equal(t, "Toyota", *s.Brand)
	assert.Equal(t, "Camry", *s.Model)
	assert.Equal(t, int64(3_000_000), *s.BudgetMax)
	assert.Equal(t, "срочно", *s.Timeline)
	assert.Equal(t, "+79161234567", *s.Phone)
	assert.Nil(t, s.BudgetMin)
	assert.Empty(t, res.Warnings)
}

func TestParseSlotsStripsWrapping(t *testing.T) {
	content := "Sure! Here is the data:\n```json\n{\"body_type\": \"crossover\", \"budget_min\": 1500000}\n```\nHope it helps."
	res, err := ParseSlots(content, "RU")
	require.NoError(t, err)
	assert.Equal(t, "crossover", *res.Slots.BodyType)
	assert.Equal(t, int64(1_500_000), *res.Slots.BudgetMin)
}

func TestParseSlotsSkipsUnknownAndNull(t *testing.T) {
	res, err := ParseSlots(`{"brand":"unknown","model":null,"timeline":"  ","customer_name":"Ivan"}`, "RU")
	require.NoError(t, err)
	assert.Nil(t, res.Slots.Brand)
	assert.Nil(t, res.Slots.Model)
	assert.Nil(t, res.Slots.Timeline)
	assert.Equal(t, "Ivan", *res.Slots.CustomerName)
}

func TestParseSlotsAliases(t *testing.T) {
	res, err := ParseSlots(`{"car_brand":"BMW","car_model":"X5","country":"Germany","name":"Anna"}`, "RU")
	require.NoError(t, err)
	assert.Equal(t, "BMW", *res.Slots.Brand)
	assert.Equal(t, "X5", *res.Slots.Model)
	assert.Equal(t, "Germany", *res.Slots.SourceCountry)
	assert.Equal(t, "Anna", *res.Slots.CustomerName)
}

func TestParseSlotsCanonicalKeyWinsOverAlias(t *testing.T) {
	for i := 0; i < 20; i++ {
		res, err := ParseSlots(`{"brand":"Toyota","car_brand":"Lexus","make":"Mazda","name":"Anna","customer_name":"Olga"}`, "RU")
		require.NoError(t, err)
		assert.Equal(t, "Toyota", *res.Slots.Brand)
		assert.Equal(t, "Olga", *res.Slots.CustomerName)
	}
}

func TestParseSlotsWarnsOnBadValues(t *testing.T) {
	res, err := ParseSlots(`{"brand":{"x":1},"budget_max":"a lot","color":"red","model":2024}`, "RU")
	require.NoError(t, err)
	assert.Nil(t, res.Slots.Brand)
	assert.Nil(t, res.Slots.BudgetMax)
	assert.Equal(t, "2024", *res.Slots.Model)
	assert.Len(t, res.Warnings, 3)
}

func TestParseSlotsMalformed(t *testing.T) {
	for _, content := range []string{"", "no json here", `{"brand": "Kia"`, "```json\n{broken}\n```"} {
		_, err := ParseSlots(content, "RU")
		require.Error(t, err, content)
		assert.Equal(t, errx.KindMalformedOutput, errx.KindOf(err))
	}
}

func TestParseSlotsTruncatesHugeContent(t *testing.T) {
	content := `{"brand":"Kia"}` + strings.Repeat(" ", maxContentLen)
	res, err := ParseSlots(content, "RU")
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, "Kia", *res.Slots.Brand)
}

func TestSafeSnippetKeepsRunes(t *testing.T) {
	s := safeSnippet(strings.Repeat("я", maxErrSnippet))
	assert.LessOrEqual(t, len(s), maxErrSnippet)
	assert.True(t, strings.HasPrefix(strings.Repeat("я", maxErrSnippet), s))
}
