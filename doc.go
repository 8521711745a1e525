// Package sed provides sound event detection inference using ONNX models.
//
// # Quick Start
//
//	det, err := sed.New("model.onnx", labels)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer det.Close()
//
//	out, err := det.Forward(ctx, batch)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d clips, %d classes\n", len(out.Tags), len(labels))
//
// # Thread Safety
//
// Detector is safe for concurrent use. It manages an internal pool of ONNX
// sessions, configurable via WithPoolSize.
//
// # Evaluation
//
// Metric computation (event-based, segment-based, audio tagging and PSDS)
// lives in internal/eval and is exposed through the sed-eval command.
package sed
