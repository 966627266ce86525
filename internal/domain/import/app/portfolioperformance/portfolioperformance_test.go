package portfolioperformance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/parser"
)

const (
	englishHeader = "Date,Type,Value,Transaction Currency,Gross Amount,Currency Gross Amount,Exchange Rate,Fees,Taxes,Shares,ISIN,WKN,Ticker Symbol,Security Name,Note"
	germanHeader  = "Datum;Typ;Wert;Buchungswährung;Bruttobetrag;Währung Bruttobetrag;Wechselkurs;Gebühren;Steuern;Stück;ISIN;WKN;Ticker-Symbol;Wertpapiername;Notiz"
)

func parse(t *testing.T, page document.Page) (implementation.Result, error) {
	t.Helper()
	table, err := parser.NormalizeCSV(page)
	require.NoError(t, err)
	return New().Parse(document.Content{Pages: []document.Page{page}, Extension: document.ExtensionCSV, Table: table})
}

func TestDetect(t *testing.T) {
	app := New()
	assert.True(t, app.Detect([]document.Page{{englishHeader}}, document.ExtensionCSV))
	assert.True(t, app.Detect([]document.Page{{germanHeader}}, document.ExtensionCSV))
	assert.False(t, app.Detect([]document.Page{{englishHeader}}, document.ExtensionPDF))
	assert.False(t, app.Detect([]document.Page{{"Date,Type,Value,Note"}}, document.ExtensionCSV))
}

func TestParse_English(t *testing.T) {
	result, err := parse(t, document.Page{
		englishHeader,
		`2024-01-15T09:30,Buy,"1,001.00",EUR,"1,001.00",EUR,,1.00,,10,US0378331005,865985,AAPL,Apple Inc.,`,
		"2024-01-20T00:00,Deposit,500.00,EUR,500.00,EUR,,,,,,,,,",
		"2024-02-14T00:00,Dividend,4.10,EUR,4.80,USD,0.9,,0.70,10,US0378331005,865985,AAPL,Apple Inc.,",
	})
	require.NoError(t, err)
	assert.Equal(t, importerr.StatusOK, result.Status)
	require.Len(t, result.Activities, 2)

	buy := result.Activities[0]
	require.NotNil(t, buy)
	assert.Equal(t, activity.TypeBuy, buy.Type)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), buy.Date)
	require.NotNil(t, buy.Datetime)
	assert.True(t, decimal.RequireFromString("1001").Equal(buy.Amount), buy.Amount.String())
	assert.True(t, decimal.NewFromInt(100).Equal(buy.Price), buy.Price.String())
	assert.Equal(t, "865985", buy.WKN)

	div := result.Activities[1]
	require.NotNil(t, div)
	assert.Equal(t, activity.TypeDividend, div.Type)
	assert.Equal(t, "USD", div.ForeignCurrency)
	require.NotNil(t, div.FxRate)
	assert.True(t, decimal.RequireFromString("0.9").Equal(*div.FxRate))
	assert.True(t, decimal.RequireFromString("0.7").Equal(div.Tax))
}

func TestParse_TaxRefund(t *testing.T) {
	result, err := parse(t, document.Page{
		englishHeader,
		"2024-02-14T00:00,Dividend,4.80,EUR,4.80,EUR,,,-0.30,10,US0378331005,865985,AAPL,Apple Inc.,",
	})
	require.NoError(t, err)
	require.Len(t, result.Activities, 1)
	div := result.Activities[0]
	require.NotNil(t, div)
	assert.True(t, decimal.RequireFromString("-0.3").Equal(div.Tax), div.Tax.String())
	assert.True(t, decimal.RequireFromString("4.8").Equal(div.Amount))
}

func TestParse_German(t *testing.T) {
	result, err := parse(t, document.Page{
		germanHeader,
		"15.01.2024;Kauf;1.001,00;EUR;1.001,00;EUR;;1,00;;10;US0378331005;865985;AAPL;Apple Inc.;",
		"16.01.2024;Verkauf;520,50;EUR;520,50;EUR;;;;5;US0378331005;865985;AAPL;Apple Inc.;",
		"17.01.2024;Zinsen;3,21;EUR;3,21;EUR;;;;;;;;;",
	})
	require.NoError(t, err)
	require.Len(t, result.Activities, 3)

	assert.Equal(t, activity.TypeBuy, result.Activities[0].Type)
	assert.True(t, decimal.RequireFromString("1001").Equal(result.Activities[0].Amount))
	assert.Nil(t, result.Activities[0].Datetime)
	assert.Equal(t, activity.TypeSell, result.Activities[1].Type)
	assert.Equal(t, activity.TypeInterest, result.Activities[2].Type)
	assert.True(t, decimal.RequireFromString("3.21").Equal(result.Activities[2].Amount))
}

func TestMapType(t *testing.T) {
	tests := []struct {
		label string
		want  activity.Type
	}{
		{"Buy", activity.TypeBuy},
		{"  VERKAUF ", activity.TypeSell},
		{"Delivery (Inbound)", activity.TypeTransferIn},
		{"Dividnd", activity.TypeDividend},
		{"Divdiend", activity.TypeDividend},
		{"Einlage", skip},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := mapType(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "xy", "Cryptocurrency swap"} {
		_, err := mapType(bad)
		assert.ErrorIs(t, err, importerr.ErrParseFailed, bad)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Run("bad number", func(t *testing.T) {
		_, err := parse(t, document.Page{
			englishHeader,
			"2024-01-15,Buy,abc,EUR,,,,,,10,US0378331005,,,Apple Inc.,",
		})
		assert.ErrorIs(t, err, importerr.ErrParseFailed)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := parse(t, document.Page{
			englishHeader,
			"2024-01-15,Spin-off,10.00,EUR,,,,,,10,US0378331005,,,Apple Inc.,",
		})
		assert.ErrorIs(t, err, importerr.ErrParseFailed)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("line counts metadata above header", func(t *testing.T) {
		_, err := parse(t, document.Page{
			"Portfolio Performance",
			"Account transactions",
			englishHeader,
			"2024-01-15,Spin-off,10.00,EUR,,,,,,10,US0378331005,,,Apple Inc.,",
		})
		assert.ErrorIs(t, err, importerr.ErrParseFailed)
		assert.Contains(t, err.Error(), "line 4")
	})

	t.Run("invalid activity leaves hole", func(t *testing.T) {
		result, err := parse(t, document.Page{
			englishHeader,
			"2024-01-15,Buy,10.00,EUR,,,,,,,US0378331005,,,Apple Inc.,",
		})
		require.NoError(t, err)
		require.Len(t, result.Activities, 1)
		assert.Nil(t, result.Activities[0])
	})
}
