package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const caSample = `Compte professionnel;12345678901;;
Téléchargement du 01/02/2025;;;
;;;
Date;Libellé;Débit euros;Crédit euros
05/01/2025;"CB AMAZON EU SARL
 PAIEMENT DU 04/01";100,00;
12/01/2025;CARREFOUR ALIMENTATION;50,00;
20/01/2025;VIR SEPA CLIENT DUPONT;;1 234,56
;Solde au 31/01/2025;;
31/01/2025;FRAIS TENUE DE COMPTE;;
`

func TestCAParser_Parse(t *testing.T) {
	p := &CAParser{}
	txns, err := p.Parse(strings.NewReader(caSample))
	require.NoError(t, err)
	require.Len(t, txns, 3)

	assert.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, "CB AMAZON EU SARL PAIEMENT DU 04/01", txns[0].Description)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-100")), "got %s", txns[0].Amount)

	assert.True(t, txns[1].Amount.Equal(decimal.RequireFromString("-50")))

	assert.Equal(t, "VIR SEPA CLIENT DUPONT", txns[2].Description)
	assert.True(t, txns[2].Amount.Equal(decimal.RequireFromString("1234.56")), "got %s", txns[2].Amount)
}

func TestCAParser_NoHeader(t *testing.T) {
	p := &CAParser{}
	_, err := p.Parse(strings.NewReader("a;b;c\nd;e;f\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestCAParser_Format(t *testing.T) {
	p := &CAParser{}
	assert.Equal(t, "credit-agricole", p.Format())
}

func TestParseFrenchAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1 234,56 €", "1234.56"},
		{"1.234,56", "1234.56"},
		{"12.345.678,90", "12345678.9"},
		{"1234.56", "1234.56"},
		{"100,00", "100"},
		{"-42,50", "-42.5"},
		{"", "0"},
		{"   ", "0"},
	}
	for _, tt := range tests {
		got, err := parseFrenchAmount(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "input %q: got %s", tt.in, got)
	}
}
