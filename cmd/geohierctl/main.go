// Command geohierctl is the operator CLI for the event geo hierarchy: it
// normalizes raw addresses, locates single events, renders stored
// hierarchies and imports iCalendar feeds.
package main

import (
	"os"

	"github.com/couchcryptid/event-geo-hierarchy/cmd/geohierctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
