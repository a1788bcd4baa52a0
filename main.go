package main

import (
	"fmt"
	"time"

	"github.com/meenmo/volib/funding"
	"github.com/meenmo/volib/utils"
	"github.com/meenmo/volib/vol"
)

func main() {
	origin := time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)
	model := funding.NewModel(origin).
		AddCurve(funding.NewFlatCurve(origin, "USD", 0.043)).
		AddCurve(funding.NewFlatCurve(origin, "ZAR", 0.072)).
		AddFxSpot(funding.NewFxPair("USD", "ZAR", 2), 17.35)
	fxForward, err := model.FxForward("USD", "ZAR")
	if err != nil {
		panic(err)
	}

	tenors := []string{"1M", "3M", "6M", "1Y"}
	quotes := vol.RiskyFlyQuotes{
		ATMs:       []float64{0.142, 0.145, 0.149, 0.156},
		WingDeltas: []float64{0.25, 0.10},
		Riskies:    [][]float64{{0.011, 0.021}, {0.013, 0.025}, {0.015, 0.029}, {0.017, 0.033}},
		Flies:      [][]float64{{0.0025, 0.0085}, {0.003, 0.0100}, {0.0035, 0.0115}, {0.004, 0.0130}},
	}
	for _, tenor := range tenors {
		expiry, err := utils.TenorToDate(origin, tenor)
		if err != nil {
			panic(err)
		}
		quotes.Expiries = append(quotes.Expiries, expiry)
		quotes.Forwards = append(quotes.Forwards, fxForward(utils.YearFraction(origin, expiry, utils.Act365F)))
	}

	meta := vol.Meta{Origin: origin, Currency: "ZAR", AssetID: "USDZAR"}
	surface, err := vol.NewRiskyFly(meta, quotes, vol.RiskyFlyConventions{WingQuoteType: vol.MarketWingQuotes},
		vol.WithPillarLabels(tenors))
	if err != nil {
		panic(err)
	}

	fmt.Printf("%-4s %10s %8s %8s %8s %8s %8s\n", "", "forward", "10P", "25P", "ATM", "25C", "10C")
	for i, tenor := range tenors {
		row := make([]float64, 0, 5)
		for _, d := range []float64{-0.10, -0.25, 0.5, 0.25, 0.10} {
			v, err := vol.VolForDeltaStrikeAt(surface, d, quotes.Expiries[i], quotes.Forwards[i])
			if err != nil {
				panic(err)
			}
			row = append(row, v)
		}
		fmt.Printf("%-4s %10.4f %8.4f %8.4f %8.4f %8.4f %8.4f\n", tenor, quotes.Forwards[i], row[0], row[1], row[2], row[3], row[4])
	}

	fwd, err := vol.ForwardATMVolBetween(surface, quotes.Expiries[1], quotes.Expiries[3])
	if err != nil {
		panic(err)
	}
	fmt.Printf("3M x 1Y forward ATM vol: %.4f\n", fwd)
}
