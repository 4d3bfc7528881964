// Command lookup resolves one postal code from the terminal using the same
// controller as the web page.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"zipcode_map/internal/adapters"
	"zipcode_map/internal/lookup"
	"zipcode_map/internal/zipcode"
	"zipcode_map/platform/config"
	"zipcode_map/platform/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("lookup", flag.ContinueOnError)
	flags.SetOutput(stderr)
	country := flags.String("country", "", "country code, e.g. us")
	zip := flags.String("zip", "", "postal code, e.g. 90210")
	verbose := flags.Bool("v", false, "log to stderr")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return 1
	}

	logOut := io.Discard
	if *verbose {
		logOut = stderr
	}
	log := logger.NewWithWriter(cfg.Env, logOut)

	fetcher := adapters.NewPlaceFetcherAdapter(zipcode.NewService(cfg, log, nil))
	return lookupOnce(context.Background(), fetcher, lookup.Request{Source: *country, Zip: *zip}, cfg.GetMapResultZoom(), log, stdout, stderr)
}

func lookupOnce(ctx context.Context, fetcher lookup.PlaceFetcher, req lookup.Request, resultZoom int, log *logger.Logger, stdout, stderr io.Writer) int {
	views := &terminalViews{stdout: stdout, stderr: stderr}
	controller := lookup.NewController(fetcher, views.Views(), log, lookup.Options{ResultZoom: resultZoom})

	_ = controller.HandleSubmit(ctx, req)
	controller.Wait()

	if views.failed {
		return 1
	}
	return 0
}

// terminalViews prints what the page would show.
type terminalViews struct {
	stdout io.Writer
	stderr io.Writer
	failed bool
}

func (v *terminalViews) Views() lookup.Views {
	return lookup.Views{Map: v, Panel: v, Notifier: v, Console: v}
}

func (v *terminalViews) SetView(center lookup.LatLng, zoom int, _ bool) {
	fmt.Fprintf(v.stdout, "map: [%v, %v] zoom %d\n", center.Lat, center.Lng, zoom)
}

func (v *terminalViews) AddMarker(lookup.LatLng) {}

func (v *terminalViews) Reveal() {}

func (v *terminalViews) SetInfo(result lookup.PlaceResult) {
	for _, field := range result.Fields() {
		fmt.Fprintf(v.stdout, "%s: %s\n", field.Label, field.Value)
	}
}

func (v *terminalViews) Notify(level lookup.Level, message string) {
	v.failed = true
	fmt.Fprintf(v.stderr, "%s: %s\n", level, message)
}

func (v *terminalViews) Log(err error) {
	fmt.Fprintln(v.stderr, err)
}
