//go:build ignore

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plots altitude tracking and motor duties from a flight log database.
//   go run flightplot.go -db /var/log/stampfc.sqlite -out flight.png

func main() {
	dbFile := flag.String("db", "stampfc.sqlite", "flight log database")
	outFile := flag.String("out", "flight.png", "output image")
	flag.Parse()

	db, err := sql.Open("sqlite3", *dbFile)
	if err != nil {
		fmt.Printf("sql.Open(): %s\n", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT elapsed, altitude, alt_ref, thrust,
		duty_fr, duty_fl, duty_rr, duty_rl FROM flight_log ORDER BY id`)
	if err != nil {
		fmt.Printf("query: %s\n", err.Error())
		os.Exit(1)
	}
	defer rows.Close()

	var alt, altRef, thrust plotter.XYs
	var fr, fl, rr, rl plotter.XYs
	for rows.Next() {
		var t, a, ar, th, dfr, dfl, drr, drl float64
		if err := rows.Scan(&t, &a, &ar, &th, &dfr, &dfl, &drr, &drl); err != nil {
			continue
		}
		alt = append(alt, plotter.XY{X: t, Y: a})
		altRef = append(altRef, plotter.XY{X: t, Y: ar})
		thrust = append(thrust, plotter.XY{X: t, Y: th})
		fr = append(fr, plotter.XY{X: t, Y: dfr})
		fl = append(fl, plotter.XY{X: t, Y: dfl})
		rr = append(rr, plotter.XY{X: t, Y: drr})
		rl = append(rl, plotter.XY{X: t, Y: drl})
	}

	p := plot.New()
	p.Title.Text = "Flight Log"
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = "Altitude (m) / duty"

	err = plotutil.AddLines(p,
		"altitude", alt,
		"alt_ref", altRef,
		"thrust", thrust,
		"FR", fr, "FL", fl, "RR", rr, "RL", rl)
	if err != nil {
		panic(err)
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, *outFile); err != nil {
		panic(err)
	}
	fmt.Printf("wrote %s\n", *outFile)
}
