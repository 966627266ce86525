package parser

import (
	"time"
	_ "time/tzdata"
)

// Berlin is the wall-clock zone of German broker statements.
var Berlin = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
