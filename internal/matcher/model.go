package matcher

import (
	"encoding/json"
	"math"
	"os"

	"invoice-reconciliation-service/pkg/errors"
)

// LogisticClassifier scores invoice/movement pairs with a logistic
// function over the four pair features. The weights come from a model
// file trained offline on confirmed matches; training itself happens
// outside this tool.
type LogisticClassifier struct {
	Bias             float64 `json:"bias"`
	AmountDiffWeight float64 `json:"amount_diff_weight"`
	DayDiffWeight    float64 `json:"day_diff_weight"`
	SimilarityWeight float64 `json:"similarity_weight"`
	SameAmountWeight float64 `json:"same_amount_weight"`
}

// Score returns the match probability for the feature vector.
func (c *LogisticClassifier) Score(features PairFeatures) (float64, error) {
	amountDiff, _ := features.AmountDifference.Float64()

	same := 0.0
	if features.SameAmount {
		same = 1.0
	}

	z := c.Bias +
		c.AmountDiffWeight*amountDiff +
		c.DayDiffWeight*float64(features.DayDifference) +
		c.SimilarityWeight*features.SequenceSimilarity +
		c.SameAmountWeight*same

	return 1.0 / (1.0 + math.Exp(-z)), nil
}

// LoadClassifierModel reads a JSON model file and returns the
// classifier it describes.
func LoadClassifierModel(filePath string) (*LogisticClassifier, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.LoadError(errors.CodeFileNotFound, filePath, err)
	}

	var classifier LogisticClassifier
	if err := json.Unmarshal(data, &classifier); err != nil {
		return nil, errors.ClassifierUnavailableError("model file is not valid JSON: " + err.Error())
	}
	return &classifier, nil
}
