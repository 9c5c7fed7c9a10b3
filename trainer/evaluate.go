package trainer

import "context"
import "fmt"

import "github.com/neurlang/cnntrain/datasets"
import "github.com/neurlang/cnntrain/layer"

// Classifier predicts one class per sample.
type Classifier interface {
	Classify(x *layer.Tensor) ([]int, error)
}

func evaluate(ctx context.Context, net Classifier, data DataSource, each func(label, predicted int)) error {
	return data.Iterate(ctx, 0, func(b datasets.Batch) error {
		pred, err := net.Classify(b.Inputs)
		if err != nil {
			return err
		}
		if len(pred) != len(b.Labels) {
			return fmt.Errorf("batch %d: %d predictions for %d labels", b.Index, len(pred), len(b.Labels))
		}
		for i, p := range pred {
			each(b.Labels[i], p)
		}
		return nil
	})
}

// Evaluate classifies every batch of epoch 0 of data and returns the number
// of correct predictions and the number of samples.
func Evaluate(ctx context.Context, net Classifier, data DataSource) (correct, total int, err error) {
	err = evaluate(ctx, net, data, func(label, predicted int) {
		if label == predicted {
			correct++
		}
		total++
	})
	return
}

// EvaluateClasses is Evaluate counted per true label in [0, classes).
func EvaluateClasses(ctx context.Context, net Classifier, data DataSource, classes int) (correct, total []int, err error) {
	correct = make([]int, classes)
	total = make([]int, classes)
	err = evaluate(ctx, net, data, func(label, predicted int) {
		if label < 0 || label >= classes {
			return
		}
		if label == predicted {
			correct[label]++
		}
		total[label]++
	})
	return
}

// Accuracy returns correct/total in percent, 0 for an empty set.
func Accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}
