package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-fee-api/internal/dto"
	appErrors "github.com/noah-isme/institute-fee-api/pkg/errors"
	"github.com/noah-isme/institute-fee-api/pkg/export"
	"github.com/noah-isme/institute-fee-api/pkg/storage"
)

var statementHeaders = []string{"Student", "Offering", "Billing Cycle", "Monthly", "Discount", "Amount"}

// StatementService renders family fee statements to CSV or PDF and stores
// them on disk behind signed download URLs.
type StatementService struct {
	fees    *FeeService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	baseURL string
	logger  *zap.Logger
}

// NewStatementService constructs StatementService. baseURL is the public
// prefix download tokens are appended to.
func NewStatementService(fees *FeeService, store *storage.LocalStorage, signer *storage.SignedURLSigner, baseURL string, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementService{
		fees:    fees,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter("Monthly", "Discount", "Amount"),
		store:   store,
		signer:  signer,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Generate computes the family fee, renders it in the requested format and
// returns a signed download reference.
func (s *StatementService) Generate(ctx context.Context, familyID string, asOf time.Time, format dto.StatementFormat) (*dto.Statement, error) {
	if format != dto.StatementCSV && format != dto.StatementPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	fee, err := s.fees.ComputeFamilyFee(ctx, familyID, asOf)
	if err != nil {
		return nil, err
	}

	dataset := buildStatementDataset(fee)
	title := fmt.Sprintf("Fee Statement %s (%s)", fee.FamilyName, asOf.Format("January 2006"))

	var content []byte
	switch format {
	case dto.StatementCSV:
		content, err = s.csv.Render(dataset)
	case dto.StatementPDF:
		content, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}

	statementID := uuid.NewString()
	fileName := fmt.Sprintf("%s/%s-%s.%s", familyID, asOf.Format("2006-01"), statementID, format)
	if _, err := s.store.Save(fileName, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store statement")
	}

	token, expiresAt, err := s.signer.Generate(statementID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign statement url")
	}

	s.logger.Info("statement generated",
		zap.String("statement_id", statementID),
		zap.String("family_id", familyID),
		zap.String("format", string(format)),
	)
	return &dto.Statement{
		ID:          statementID,
		FamilyID:    familyID,
		Format:      format,
		FileName:    fileName,
		DownloadURL: fmt.Sprintf("%s/%s", s.baseURL, token),
		ExpiresAt:   expiresAt,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Open validates a download token and returns the stored file path.
func (s *StatementService) Open(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	return s.store.Path(relPath), nil
}

// CleanupExpired removes statement files older than ttl.
func (s *StatementService) CleanupExpired(ttl time.Duration) (int, error) {
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired statements removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}

func buildStatementDataset(fee *dto.FamilyFee) export.Dataset {
	rows := make([]map[string]string, 0)
	for _, student := range fee.PerStudent {
		for _, line := range student.Breakdown {
			rows = append(rows, map[string]string{
				"Student":       student.StudentName,
				"Offering":      line.OwnerName,
				"Billing Cycle": string(line.BillingCycle),
				"Monthly":       line.MonthlyEquivalent.StringFixed(2),
				"Discount":      line.Discount.StringFixed(2),
				"Amount":        line.Amount.StringFixed(2),
			})
		}
	}
	rows = append(rows, map[string]string{
		"Student": "Family discount",
		"Amount":  fee.FamilyDiscountApplied.Neg().StringFixed(2),
	})
	return export.Dataset{
		Headers: statementHeaders,
		Rows:    rows,
		Footer: map[string]string{
			"Student": "Total due",
			"Amount":  fee.FamilyNet.StringFixed(2),
		},
	}
}
