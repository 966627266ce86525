// Package registry enumerates every statement implementation the importer
// knows about. The set is fixed at compile time.
package registry

import (
	"github.com/FACorreiaa/activity-importer/internal/domain/import/app/portfolioperformance"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/broker/comdirect"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/broker/scalablecapital"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/broker/traderepublic"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
)

// Brokers returns the bank and broker statement parsers.
func Brokers() []implementation.Implementation {
	return []implementation.Implementation{
		comdirect.New(),
		scalablecapital.New(),
		traderepublic.New(),
	}
}

// Apps returns the portfolio app export parsers.
func Apps() []implementation.Implementation {
	return []implementation.Implementation{
		portfolioperformance.New(),
	}
}

// All returns brokers followed by apps.
func All() []implementation.Implementation {
	return append(Brokers(), Apps()...)
}

// Describe lists the registered implementations.
func Describe(impls []implementation.Implementation) []implementation.Info {
	out := make([]implementation.Info, 0, len(impls))
	for _, impl := range impls {
		out = append(out, implementation.Describe(impl))
	}
	return out
}
