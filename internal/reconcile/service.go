// Package reconcile imports a previewed statement into a user's history: it drops duplicates,
// detects transfers, persists the rest and links both sides of every transfer.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/transfer"
)

const defaultLinkConcurrency = 4

var ErrEmptyBatch = errors.New("batch has no dialect")

// Config holds the per-dialect settings of the import.
type Config struct {
	Providers importer.Providers
	// Markers are the title substrings identifying provider-internal transfers, per dialect.
	Markers         map[importer.Dialect]string
	LinkConcurrency int
}

// Summary reports the outcome of one import.
type Summary struct {
	BatchID     uuid.UUID `json:"batch_id"`
	Imported    int       `json:"imported"`
	Skipped     int       `json:"skipped"`
	LinkedPairs int       `json:"linked_pairs"`
	FailedLinks int       `json:"failed_links"`
	// Interrupted is set when the context ended while links were still being written.
	Interrupted bool `json:"interrupted"`
}

type Service struct {
	txs        Transactions
	categories Categories
	balances   Balances
	cfg        Config
	logger     *slog.Logger
}

func NewService(txs Transactions, categories Categories, balances Balances, cfg Config, logger *slog.Logger) *Service {
	if cfg.LinkConcurrency <= 0 {
		cfg.LinkConcurrency = defaultLinkConcurrency
	}

	return &Service{txs: txs, categories: categories, balances: balances, cfg: cfg, logger: logger}
}

// existingLink is a new candidate matched to an already persisted transaction.
type existingLink struct {
	newIdx     int
	existingID uuid.UUID
}

// plan is the outcome of transfer detection over the fresh candidates.
type plan struct {
	batchPairs []transfer.Pair
	links      []existingLink
	flagged    map[int]bool
}

// RunImport persists the candidates of batch for userID.
//
// Existing history and the transfer category are fetched first; failing either aborts the
// import, as does failing the balance snapshot or the insert. Once transactions are persisted,
// link failures are logged and counted but never abort: the result may be imported but
// under-linked. Cancelling ctx during linking stops further link writes only.
func (s *Service) RunImport(ctx context.Context, userID uuid.UUID, batch *importer.Batch) (*Summary, error) {
	if batch == nil || batch.Dialect == importer.DialectUnknown {
		return nil, ErrEmptyBatch
	}

	var (
		existing           []*transaction.Transaction
		transferCategoryID string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if existing, err = s.txs.ListAll(gctx, userID); err != nil {
			return fmt.Errorf("fetch existing transactions: %w", err)
		}

		return nil
	})
	g.Go(func() error {
		var err error
		if transferCategoryID, err = s.categories.TransferCategoryID(gctx); err != nil {
			return fmt.Errorf("fetch transfer category: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]transaction.CreateParams, len(batch.Candidates))
	for i, c := range batch.Candidates {
		c.UserID = userID
		candidates[i] = c
	}

	fresh, dupes := transaction.FilterDuplicates(existing, candidates)

	summary := &Summary{Skipped: len(dupes)}
	if len(fresh) == 0 {
		return summary, nil
	}

	batchID := uuid.New()
	if err := s.balances.Snapshot(ctx, userID, batchID); err != nil {
		return nil, fmt.Errorf("snapshot balances: %w", err)
	}

	p := s.detect(batch.Dialect, fresh, existing)

	for i := range fresh {
		fresh[i].ImportBatchID = &batchID

		if p.flagged[i] {
			fresh[i].CategoryID = transferCategoryID
			fresh[i].ExcludeFromAnalytics = true
			fresh[i].IsAnalyticsProtected = true
		}
	}

	for _, l := range p.links {
		fresh[l.newIdx].MatchedTransferID = &l.existingID
	}

	persisted, err := s.txs.CreateBatch(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("persist transactions: %w", err)
	}

	summary.BatchID = batchID

	if len(batch.Balances) > 0 {
		if err := s.balances.Apply(ctx, userID, batch.Balances); err != nil {
			s.logger.Error("failed to update account balances", "batch_id", batchID, "error", err)
		}
	}

	ids, imported, err := s.assignedIDs(ctx, userID, batchID, fresh, persisted)
	if err != nil {
		s.logger.Error("failed to recover ids of imported transactions", "batch_id", batchID, "error", err)
		summary.Imported = len(persisted)
		summary.FailedLinks = len(p.links) + 2*len(p.batchPairs)

		return summary, nil
	}

	// The store leaves out rows a concurrent import committed after the lookup above.
	summary.Imported = imported
	if dropped := len(fresh) - imported; dropped > 0 {
		summary.Skipped += dropped
	}

	s.linkExisting(ctx, transferCategoryID, p.links, ids, summary)
	s.linkBatchPairs(ctx, transferCategoryID, p.batchPairs, ids, summary)

	return summary, nil
}

// detect runs the three transfer strategies in order. A candidate matched by one strategy is not
// offered to the next; existing transactions that already take part in a transfer are ignored.
func (s *Service) detect(dialect importer.Dialect, fresh []transaction.CreateParams, existing []*transaction.Transaction) plan {
	items := transfer.FromParams(fresh)

	same := transfer.SameBatch(items)
	p := plan{batchPairs: same.Pairs, flagged: make(map[int]bool, len(same.Indices))}

	for i := range same.Indices {
		p.flagged[i] = true
	}

	own := s.cfg.Providers.Label(dialect)
	other := s.cfg.Providers.Label(otherDialect(dialect))

	ownExisting := unlinkedOf(existing, own)
	otherExisting := unlinkedOf(existing, other)

	remaining, back := unflagged(items, p.flagged)
	for _, m := range transfer.ProviderInternal(remaining, transfer.FromTransactions(ownExisting), s.cfg.Markers[dialect]) {
		p.add(back[m.New], ownExisting[m.Existing].ID)
	}

	remaining, back = unflagged(items, p.flagged)
	for _, m := range transfer.CrossProvider(remaining, transfer.FromTransactions(otherExisting), own, other) {
		p.add(back[m.New], otherExisting[m.Existing].ID)
	}

	return p
}

func (p *plan) add(newIdx int, existingID uuid.UUID) {
	p.flagged[newIdx] = true
	p.links = append(p.links, existingLink{newIdx: newIdx, existingID: existingID})
}

func otherDialect(d importer.Dialect) importer.Dialect {
	if d == importer.DialectCard {
		return importer.DialectBank
	}

	return importer.DialectCard
}

func unlinkedOf(txs []*transaction.Transaction, provider string) []*transaction.Transaction {
	var out []*transaction.Transaction

	for _, tx := range txs {
		if tx.Provider == provider && !tx.IsLinked() {
			out = append(out, tx)
		}
	}

	return out
}

// unflagged returns the items not yet matched, with a mapping from their new positions back to
// the original indices.
func unflagged(items []transfer.Item, flagged map[int]bool) ([]transfer.Item, []int) {
	var (
		out  []transfer.Item
		back []int
	)

	for i, it := range items {
		if flagged[i] {
			continue
		}

		out = append(out, it)
		back = append(back, i)
	}

	return out, back
}

// assignedIDs maps each fresh candidate to its persisted id and counts the stored rows. The
// store normally returns one record per candidate in order; otherwise the batch is read back and
// matched on (day, title, amount, type), and candidates without a stored row get uuid.Nil.
func (s *Service) assignedIDs(
	ctx context.Context,
	userID, batchID uuid.UUID,
	fresh []transaction.CreateParams,
	persisted []*transaction.Transaction,
) ([]uuid.UUID, int, error) {
	if len(persisted) != len(fresh) {
		stored, err := s.txs.List(ctx, transaction.ListFilter{UserID: &userID, ImportBatchID: &batchID})
		if err != nil {
			return nil, 0, fmt.Errorf("read back batch: %w", err)
		}

		return matchByKey(fresh, stored), len(stored), nil
	}

	ids := make([]uuid.UUID, len(fresh))
	for i, tx := range persisted {
		ids[i] = tx.ID
	}

	return ids, len(persisted), nil
}

// matchByKey assigns every candidate the id of the first unclaimed persisted record with the same
// key. Unmatched candidates get uuid.Nil.
func matchByKey(fresh []transaction.CreateParams, persisted []*transaction.Transaction) []uuid.UUID {
	pool := make(map[transaction.Key][]uuid.UUID, len(persisted))
	for _, tx := range persisted {
		k := tx.Key()
		pool[k] = append(pool[k], tx.ID)
	}

	ids := make([]uuid.UUID, len(fresh))

	for i, c := range fresh {
		k := c.Key()
		if avail := pool[k]; len(avail) > 0 {
			ids[i] = avail[0]
			pool[k] = avail[1:]
		}
	}

	return ids
}

// linkExisting points every matched existing transaction at its new counterpart, concurrently.
func (s *Service) linkExisting(ctx context.Context, categoryID string, links []existingLink, ids []uuid.UUID, summary *Summary) {
	var linked, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.LinkConcurrency)

	for _, l := range links {
		if ctx.Err() != nil {
			summary.Interrupted = true
			s.logger.Warn("import linking interrupted", "error", ctx.Err())

			break
		}

		newID := ids[l.newIdx]
		if newID == uuid.Nil {
			failed.Add(1)
			continue
		}

		g.Go(func() error {
			err := s.txs.LinkTransfer(ctx, l.existingID, transaction.TransferLink{CategoryID: categoryID, MatchedTransferID: &newID})
			if err != nil {
				s.logger.Error("failed to link existing transfer side", "existing_id", l.existingID, "new_id", newID, "error", err)
				failed.Add(1)

				return nil
			}

			linked.Add(1)

			return nil
		})
	}

	_ = g.Wait()

	summary.LinkedPairs += int(linked.Load())
	summary.FailedLinks += int(failed.Load())
}

// linkBatchPairs points both sides of every same-batch pair at each other.
func (s *Service) linkBatchPairs(ctx context.Context, categoryID string, pairs []transfer.Pair, ids []uuid.UUID, summary *Summary) {
	for _, pair := range pairs {
		if ctx.Err() != nil {
			summary.Interrupted = true
			s.logger.Warn("import linking interrupted", "error", ctx.Err())

			return
		}

		a, b := ids[pair.A], ids[pair.B]
		if a == uuid.Nil || b == uuid.Nil {
			summary.FailedLinks += 2
			continue
		}

		ok := true

		for _, side := range [][2]uuid.UUID{{a, b}, {b, a}} {
			target := side[1]
			if err := s.txs.LinkTransfer(ctx, side[0], transaction.TransferLink{CategoryID: categoryID, MatchedTransferID: &target}); err != nil {
				s.logger.Error("failed to link transfer pair", "id", side[0], "counterpart_id", target, "error", err)
				summary.FailedLinks++
				ok = false
			}
		}

		if ok {
			summary.LinkedPairs++
		}
	}
}

// UndoImport removes the transactions created by batchID and restores the balances captured
// before it ran. Transactions outside the batch that were linked to one of its rows are released
// first: they leave the transfer category and count in analytics again.
func (s *Service) UndoImport(ctx context.Context, userID, batchID uuid.UUID) (int64, error) {
	imported, err := s.txs.List(ctx, transaction.ListFilter{UserID: &userID, ImportBatchID: &batchID})
	if err != nil {
		return 0, fmt.Errorf("list batch: %w", err)
	}

	inBatch := make(map[uuid.UUID]bool, len(imported))
	for _, tx := range imported {
		inBatch[tx.ID] = true
	}

	for _, tx := range imported {
		if tx.MatchedTransferID == nil || inBatch[*tx.MatchedTransferID] {
			continue
		}

		if err := s.releaseCounterpart(ctx, userID, tx.ID, *tx.MatchedTransferID); err != nil {
			return 0, err
		}
	}

	deleted, err := s.txs.DeleteBatch(ctx, userID, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}

	if err := s.balances.Restore(ctx, userID, batchID); err != nil {
		return deleted, fmt.Errorf("restore balances: %w", err)
	}

	return deleted, nil
}

// releaseCounterpart unlinks the transaction id when it still points back at importedID, putting
// it in the category it would get on a fresh import.
func (s *Service) releaseCounterpart(ctx context.Context, userID, importedID, id uuid.UUID) error {
	other, err := s.txs.Get(ctx, id)
	if errors.Is(err, transaction.ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("get transfer counterpart: %w", err)
	}

	if other.UserID != userID || other.MatchedTransferID == nil || *other.MatchedTransferID != importedID {
		return nil
	}

	categoryID, err := s.categories.Resolve(ctx, other.Title, other.Subtitle, other.Type == transaction.TypeExpense)
	if err != nil {
		return fmt.Errorf("resolve category for %s: %w", other.ID, err)
	}

	if err := s.txs.UnlinkTransfer(ctx, other.ID, categoryID); err != nil {
		return fmt.Errorf("release transfer counterpart: %w", err)
	}

	return nil
}
