// Package pipeline orchestrates statement ingestion: text extraction, the
// external structured-extraction call, per-candidate normalization and
// category resolution, and the atomic batch commit.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/categories"
	"github.com/dvloznov/statement-ledger/internal/dates"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/parser"
)

type Pipeline struct {
	extractor TextExtractor
	parser    parser.StatementParser
	resolver  CategoryResolver
	store     TransactionStore
	archiver  Archiver // nil when archival is not configured
	log       zerolog.Logger
	now       func() time.Time
}

func New(extractor TextExtractor, p parser.StatementParser, resolver CategoryResolver, store TransactionStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		parser:    p,
		resolver:  resolver,
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// WithArchiver enables best-effort archival of raw statement bytes after a
// successful commit.
func (p *Pipeline) WithArchiver(a Archiver) *Pipeline {
	p.archiver = a
	return p
}

// WithClock overrides the time source (used by tests).
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Ingest runs a full statement upload: extract text, call the extraction
// service with the user's category whitelist, normalize and resolve every
// candidate, then commit the whole batch or nothing.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename, userID string) ([]*domain.Transaction, error) {
	log := p.log.With().Str("filename", filename).Str("user_id", userID).Logger()

	text, err := p.extractor.Text(filename, data)
	if err != nil {
		return nil, err
	}

	known, err := p.resolver.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := p.parser.Extract(ctx, text, known)
	if err != nil {
		return nil, err
	}
	log.Info().Int("candidates", len(candidates)).Msg("Extraction produced candidates")

	batch := make([]*domain.Transaction, 0, len(candidates))
	for i, c := range candidates {
		tx, err := p.assemble(ctx, c, userID)
		if err != nil {
			// One bad record aborts the batch before anything is written.
			return nil, fmt.Errorf("pipeline: candidate %d: %w", i, err)
		}
		batch = append(batch, tx)
	}

	if err := p.store.InsertTransactionBatch(ctx, batch); err != nil {
		return nil, err
	}
	log.Info().Int("transactions", len(batch)).Msg("Batch committed")

	p.archive(ctx, log, userID, filename, data)

	return batch, nil
}

// IngestManual persists a single manually entered candidate through the same
// normalize, resolve, persist sequence.
func (p *Pipeline) IngestManual(ctx context.Context, c domain.Candidate, userID string) (*domain.Transaction, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	tx, err := p.assemble(ctx, c, userID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if err := p.store.InsertTransactionBatch(ctx, []*domain.Transaction{tx}); err != nil {
		return nil, err
	}
	return tx, nil
}

// assemble turns one candidate into a persistable transaction: canonical
// date, resolved category id, fresh unique id.
func (p *Pipeline) assemble(ctx context.Context, c domain.Candidate, userID string) (*domain.Transaction, error) {
	date, err := dates.Parse(c.Date, p.now())
	if err != nil {
		return nil, err
	}

	res, err := p.resolver.ResolveOrCreate(ctx, c.Category, userID)
	if err != nil {
		return nil, err
	}

	return &domain.Transaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Date:          date,
		Amount:        c.Amount,
		Type:          domain.TransactionType(c.TransactionType),
		CategoryID:    res.CategoryID,
		CategoryName:  categories.Canonical(c.Category),
		ToFrom:        c.ToFrom,
		Description:   c.Description,
		CreatedTS:     p.now().UTC(),
	}, nil
}

func (p *Pipeline) archive(ctx context.Context, log zerolog.Logger, userID, filename string, data []byte) {
	if p.archiver == nil {
		return
	}
	uri, err := p.archiver.ArchiveStatement(ctx, userID, filename, data)
	if err != nil {
		log.Warn().Err(err).Msg("Statement archival failed; ingestion result is unaffected")
		return
	}
	log.Info().Str("uri", uri).Msg("Statement archived")
}
