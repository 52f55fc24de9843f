package classifier

import "github.com/Veraticus/the-books-must-balance/internal/model"

// Metrics summarises how well the classifier separates labelled records.
type Metrics struct {
	Samples   int
	Accuracy  float64
	Precision float64
	Recall    float64
}

// Evaluate scores each record and compares the decision at
// cfg.ScoreThreshold with its label.
func (c *Classifier) Evaluate(records []model.FeedbackRecord, cfg model.ScoringConfig) (Metrics, error) {
	var tp, fp, tn, fn int
	for _, r := range records {
		b, err := c.Score(r.Features, cfg)
		if err != nil {
			return Metrics{}, err
		}
		predicted := b.Combined >= cfg.ScoreThreshold
		switch {
		case predicted && r.Confirmed():
			tp++
		case predicted:
			fp++
		case r.Confirmed():
			fn++
		default:
			tn++
		}
	}

	m := Metrics{Samples: len(records)}
	if m.Samples > 0 {
		m.Accuracy = float64(tp+tn) / float64(m.Samples)
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	return m, nil
}
