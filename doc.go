// Package report2pdf converts structured HTML account reports into paginated
// PDF artifacts through a supervised job pipeline.
//
// A submitted document runs through three sequential stages: a preprocessor
// that sanitizes the raw HTML, a layout engine that derives print-stylesheet
// directives from the document's tabular shape, and an ordered chain of
// render strategies (headless browser, PDF library, minimal structural
// writer, plain-text backup) tried until one produces a valid artifact.
// A supervisor bounds every job's duration and sweeps orphaned jobs at
// process start, so a job always reaches a terminal state.
//
// Basic usage:
//
//	store, err := report2pdf.NewStore(dataDir)
//	if err != nil { ... }
//	defer store.Close()
//	svc := report2pdf.New(store, report2pdf.WithLogger(logger))
//	defer svc.Close()
//	job, err := svc.Submit("report.html", htmlContent, nil)
//	if err != nil { ... }
//	job, err = svc.ConvertJob(context.Background(), job.ID)
package report2pdf
