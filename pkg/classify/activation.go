package classify

import "math"

// Softmax 将原始分数归一化为概率单纯形，结果以百分比表示，总和约为 100
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}

	peak := logits[0]
	for _, v := range logits[1:] {
		if v > peak {
			peak = v
		}
	}

	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] = out[i] / sum * 100
	}
	return out
}

// Sigmoid 对每个标签独立做 sigmoid，结果以百分比表示，不做联合归一化
func Sigmoid(logits []float64) []float64 {
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = 100 / (1 + math.Exp(-v))
	}
	return out
}
