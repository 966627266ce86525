package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
)

func TestAll(t *testing.T) {
	all := All()
	require.Len(t, all, len(Brokers())+len(Apps()))

	names := make(map[string]bool)
	for _, impl := range all {
		assert.False(t, names[impl.Name()], "duplicate implementation %s", impl.Name())
		names[impl.Name()] = true
	}
	assert.True(t, names["traderepublic"])
	assert.True(t, names["portfolioperformance"])

	for _, impl := range Brokers() {
		assert.Equal(t, implementation.KindBroker, impl.Kind(), impl.Name())
	}
	for _, impl := range Apps() {
		assert.Equal(t, implementation.KindApp, impl.Kind(), impl.Name())
	}
}

func TestDetectorsDoNotOverlap(t *testing.T) {
	docs := []struct {
		pages []document.Page
		ext   document.Extension
	}{
		{[]document.Page{{"TRADE REPUBLIC BANK GMBH", "WERTPAPIERABRECHNUNG"}}, document.ExtensionPDF},
		{[]document.Page{{"comdirect bank", "Wertpapierkauf"}}, document.ExtensionPDF},
		{[]document.Page{{"date;time;status;reference;description;assetType;type;isin;shares;price;amount;fee;tax;currency"}}, document.ExtensionCSV},
		{[]document.Page{{"Date;Type;Value;Transaction Currency;Fees;Taxes;Shares;ISIN;WKN;Security Name"}}, document.ExtensionCSV},
	}

	for _, doc := range docs {
		matches := 0
		for _, impl := range All() {
			if impl.Detect(doc.pages, doc.ext) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "%v", doc.pages[0][0])
	}
}

func TestDescribe(t *testing.T) {
	infos := Describe(Apps())
	require.Len(t, infos, 1)
	assert.Equal(t, []string{"csv"}, infos[0].Extensions)
}
