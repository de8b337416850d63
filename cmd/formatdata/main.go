package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"procurement-query-pipeline/internal/dataset"
	"procurement-query-pipeline/internal/observability/logging"
)

func main() {
	pairsFile := flag.String("pairs", "dataset_output/successful_queries.json", "successful query pairs JSON file")
	trainFile := flag.String("train", "formatted_data/training_data.jsonl", "output training JSONL file")
	valFile := flag.String("val", "formatted_data/validation_data.jsonl", "output validation JSONL file")
	trainRatio := flag.Float64("train-ratio", 0.8, "fraction of pairs kept for training")
	seed := flag.Int64("seed", 42, "shuffle seed")
	analyze := flag.Bool("analyze", true, "print token and distribution analysis of the training file")
	flag.Parse()

	logging.Init(logging.DefaultConfig())

	trainN, valN, err := dataset.Convert(*pairsFile, *trainFile, *valFile, *trainRatio, *seed)
	if err != nil {
		log.Fatal().Err(err).Msg("Dataset formatting failed")
	}
	log.Info().
		Int("training", trainN).
		Int("validation", valN).
		Str("trainFile", *trainFile).
		Str("valFile", *valFile).
		Msg("JSONL files written")

	if !*analyze {
		return
	}

	examples, err := dataset.ReadJSONL(*trainFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read training file back")
	}
	analysis := dataset.Analyze(examples)
	log.Info().
		Int("examples", analysis.Examples).
		Int("recommendedEpochs", analysis.RecommendedEpochs).
		Int("billableTokens", analysis.BillableTokens).
		Int("trainingTokens", analysis.TrainingTokens).
		Float64("meanTokens", analysis.TotalTokens.Mean).
		Msg("Training data analysis")
}
