package cmd

import (
	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the command line for shell completion.
func Completion() *complete.Command {
	ranges := make(predict.Set, 0, len(carteira.Lookbacks))
	for _, l := range carteira.Lookbacks {
		ranges = append(ranges, l.String())
	}
	topics, _ := docs.GetAllTopics()

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.yaml"),
		},
		Sub: map[string]*complete.Command{
			"history": {
				Flags: map[string]complete.Predictor{
					"range":  ranges,
					"format": predict.Set{"markdown", "json"},
					"tail":   predict.Nothing,
				},
			},
			"rates": {
				Flags: map[string]complete.Predictor{
					"series": predict.Set{"cdi", "ipca"},
					"range":  ranges,
				},
			},
			"serve": {
				Flags: map[string]complete.Predictor{
					"addr": predict.Nothing,
					"warm": predict.Nothing,
				},
			},
			"topic": {
				Flags: map[string]complete.Predictor{"raw": predict.Nothing},
				Args:  append(predict.Set{"readme", "*"}, topics...),
			},
		},
	}
}
