package learning

import "fmt"
import "math"

import "github.com/neurlang/cnntrain/layer"

// CrossEntropy is the softmax cross-entropy loss averaged over the batch.
type CrossEntropy struct{}

// Compute returns the mean loss of logits [N, C] against class labels and the
// gradient of that mean with respect to the logits.
func (CrossEntropy) Compute(logits *layer.Tensor, labels []int) (float64, *layer.Tensor, error) {
	if err := logits.CheckRank(2); err != nil {
		return 0, nil, fmt.Errorf("cross entropy: %w", err)
	}
	n, classes := logits.Shape[0], logits.Shape[1]
	if n == 0 || classes == 0 {
		return 0, nil, fmt.Errorf("cross entropy: empty batch")
	}
	if len(labels) != n {
		return 0, nil, fmt.Errorf("cross entropy: %d labels for %d samples", len(labels), n)
	}
	grad := layer.NewTensor(n, classes)
	var total float64
	for s := 0; s < n; s++ {
		label := labels[s]
		if label < 0 || label >= classes {
			return 0, nil, fmt.Errorf("cross entropy: label %d out of range [0, %d)", label, classes)
		}
		row := logits.Data[s*classes : (s+1)*classes]
		max := float64(row[0])
		for _, v := range row[1:] {
			max = math.Max(max, float64(v))
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v) - max)
		}
		logSum := max + math.Log(sum)
		total += logSum - float64(row[label])

		g := grad.Data[s*classes : (s+1)*classes]
		for c, v := range row {
			p := math.Exp(float64(v) - logSum)
			if c == label {
				p -= 1
			}
			g[c] = float32(p / float64(n))
		}
	}
	return total / float64(n), grad, nil
}
