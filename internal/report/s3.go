package report

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
)

// ArtifactStore is the destination for archived report documents.
// *upload.Uploader satisfies it.
type ArtifactStore interface {
	PutReport(ctx context.Context, bucket, key string, body []byte) (string, error)
}

// S3Sink archives the full JSON report (findings plus gate result) as a
// bucket object, mirroring the demo pipeline's workflow-artifact step.
// Formatting happens here; all network access lives in the store.
type S3Sink struct {
	Store  ArtifactStore
	Bucket string
	Prefix string

	Log *zap.SugaredLogger
}

func (s *S3Sink) Name() string { return "s3" }

// artifactDoc is the archived document shape.
type artifactDoc struct {
	Report *models.ScanReport `json:"report"`
	Gate   policy.GateResult  `json:"gate"`
}

// Render implements Sink.
func (s *S3Sink) Render(ctx context.Context, report *models.ScanReport, gate policy.GateResult) error {
	data, err := json.MarshalIndent(artifactDoc{Report: report, Gate: gate}, "", "  ")
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s.json", report.ReportID)
	if s.Prefix != "" {
		key = s.Prefix + "/" + key
	}

	uri, err := s.Store.PutReport(ctx, s.Bucket, key, data)
	if err != nil {
		return err
	}
	if s.Log != nil {
		s.Log.Infow("report artifact archived", "uri", uri)
	}
	return nil
}
