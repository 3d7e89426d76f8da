package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Counter-account prefixes for the balancing credit line. Purchases
// credit suppliers payable; everything else credits receivables.
const (
	suppliersPayablePrefix = "2.1.01"
	receivablePrefix       = "1.1.01"
)

// maxSiblingSuggestions caps the analytical accounts listed in a
// non-analytical remediation message
const maxSiblingSuggestions = 5

// EngineService turns categorized fiscal documents into balanced
// journal entries and reverses them. Every posting runs inside one
// database transaction and finishes with an optimistic-lock save of the
// document, so two concurrent postings of the same document cannot both
// succeed.
type EngineService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewEngineService creates a new EngineService
func NewEngineService(scope TransactionScope, logger *zap.Logger) *EngineService {
	return &EngineService{
		scope:  scope,
		logger: logger,
	}
}

// JournalEntryLineResponse represents one entry line in API responses
type JournalEntryLineResponse struct {
	ID          uuid.UUID `json:"id"`
	LineNumber  int       `json:"line_number"`
	AccountID   uuid.UUID `json:"account_id"`
	AccountCode string    `json:"account_code"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description,omitempty"`
}

// JournalEntryResponse represents a journal entry in API responses
type JournalEntryResponse struct {
	ID               uuid.UUID                  `json:"id"`
	OrganizationID   uuid.UUID                  `json:"organization_id"`
	BranchID         uuid.UUID                  `json:"branch_id"`
	EntryNumber      string                     `json:"entry_number"`
	EntryDate        time.Time                  `json:"entry_date"`
	Description      string                     `json:"description"`
	Source           string                     `json:"source"`
	SourceDocumentID *uuid.UUID                 `json:"source_document_id,omitempty"`
	ReversedEntryID  *uuid.UUID                 `json:"reversed_entry_id,omitempty"`
	Status           string                     `json:"status"`
	TotalDebits      string                     `json:"total_debits"`
	TotalCredits     string                     `json:"total_credits"`
	Lines            []JournalEntryLineResponse `json:"lines"`
	PostedAt         *time.Time                 `json:"posted_at,omitempty"`
	CreatedAt        time.Time                  `json:"created_at"`
	Version          int                        `json:"version"`
}

func toJournalEntryResponse(entry *accounting.JournalEntry) *JournalEntryResponse {
	lines := make([]JournalEntryLineResponse, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		lines = append(lines, JournalEntryLineResponse{
			ID:          line.ID,
			LineNumber:  line.LineNumber,
			AccountID:   line.AccountID,
			AccountCode: line.AccountCode,
			Type:        string(line.Type),
			Amount:      line.Amount.StringFixed(2),
			Description: line.Description,
		})
	}
	return &JournalEntryResponse{
		ID:               entry.ID,
		OrganizationID:   entry.OrganizationID,
		BranchID:         entry.BranchID,
		EntryNumber:      entry.EntryNumber,
		EntryDate:        entry.EntryDate,
		Description:      entry.Description,
		Source:           string(entry.Source),
		SourceDocumentID: entry.SourceDocumentID,
		ReversedEntryID:  entry.ReversedEntryID,
		Status:           string(entry.Status),
		TotalDebits:      entry.TotalDebits().StringFixed(2),
		TotalCredits:     entry.TotalCredits().StringFixed(2),
		Lines:            lines,
		PostedAt:         entry.PostedAt,
		CreatedAt:        entry.CreatedAt,
		Version:          entry.Version,
	}
}

// GenerateJournalEntry builds and posts the journal entry for an
// authorized, categorized fiscal document: one debit line per
// categorized item against its expense/asset account and a single
// balancing credit against the counter account chosen by the document
// role. The document is flipped to POSTED in the same transaction.
func (s *EngineService) GenerateJournalEntry(ctx context.Context, organizationID, branchID, documentID uuid.UUID, userID *uuid.UUID) (*JournalEntryResponse, error) {
	var response *JournalEntryResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.Documents().FindByIDForOrg(ctx, organizationID, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return shared.NewDomainError("NOT_FOUND", "Fiscal document not found")
		}
		if doc.AccountingStatus == fiscal.AccountingStatusPosted {
			return shared.NewDomainError("ALREADY_POSTED", fmt.Sprintf("Document %s/%s has already been posted", doc.Series, doc.Number))
		}

		items := doc.CategorizedItems()
		if len(items) == 0 {
			return shared.NewDomainError("NO_CATEGORIZED_ITEMS", "Document has no categorized items to post")
		}

		entryNumber, err := repos.Entries().NextEntryNumber(ctx, organizationID, branchID)
		if err != nil {
			return err
		}

		entry, err := accounting.NewJournalEntry(
			organizationID,
			branchID,
			entryNumber,
			time.Now(),
			fmt.Sprintf("Lançamento do documento fiscal %s/%s (%s)", doc.Series, doc.Number, doc.DocumentType),
			accounting.EntrySourceFiscalDocument,
		)
		if err != nil {
			return err
		}
		entry.SetSourceDocument(doc.ID)
		if userID != nil {
			entry.SetCreatedBy(*userID)
		}

		total := valueobject.ZeroBRL()
		for _, item := range items {
			account, err := repos.Accounts().FindByIDForOrg(ctx, organizationID, *item.AccountID)
			if err != nil {
				return err
			}
			if account == nil {
				return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Account for item %d not found", item.ItemNumber))
			}
			if !account.AcceptsPostings() {
				return s.nonAnalyticalError(ctx, repos, organizationID, account)
			}

			itemTotal := item.Total()
			if err := entry.AddLine(account.ID, account.Code, accounting.EntryLineDebit, itemTotal, item.Description); err != nil {
				return err
			}
			total, err = total.Add(itemTotal)
			if err != nil {
				return err
			}
		}

		counterPrefix := receivablePrefix
		if doc.IsPurchase() {
			counterPrefix = suppliersPayablePrefix
		}
		counter, err := repos.Accounts().FindFirstAnalyticalByPrefix(ctx, organizationID, counterPrefix)
		if err != nil {
			return err
		}
		if counter == nil {
			return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("No analytical counter account found under %s", counterPrefix))
		}
		if err := entry.AddLine(counter.ID, counter.Code, accounting.EntryLineCredit, total, doc.IssuerName); err != nil {
			return err
		}

		if err := entry.Post(); err != nil {
			return err
		}
		if err := repos.Entries().Save(ctx, entry); err != nil {
			return err
		}

		if err := doc.MarkPosted(entry.ID); err != nil {
			return err
		}
		if userID != nil {
			doc.SetUpdatedBy(*userID)
		}
		if err := repos.Documents().SaveWithLock(ctx, doc); err != nil {
			return err
		}

		response = toJournalEntryResponse(entry)
		return nil
	})
	if err != nil {
		s.logger.Warn("Journal entry generation failed",
			zap.String("organization_id", organizationID.String()),
			zap.String("document_id", documentID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Journal entry generated",
		zap.String("organization_id", organizationID.String()),
		zap.String("document_id", documentID.String()),
		zap.String("entry_number", response.EntryNumber),
		zap.String("total_debits", response.TotalDebits))

	return response, nil
}

// nonAnalyticalError builds the remediation error for a posting against
// a synthetic or inactive account, listing up to five analytical
// accounts under it.
func (s *EngineService) nonAnalyticalError(ctx context.Context, repos TransactionalRepositories, organizationID uuid.UUID, account *accounting.Account) error {
	msg := fmt.Sprintf("Account %s (%s) does not accept postings: only active analytical accounts may receive journal lines", account.Code, account.Name)

	siblings, err := repos.Accounts().FindAnalyticalSiblings(ctx, organizationID, account.Code, maxSiblingSuggestions)
	if err == nil && len(siblings) > 0 {
		codes := make([]string, 0, len(siblings))
		for _, sibling := range siblings {
			codes = append(codes, sibling.Code)
		}
		msg = fmt.Sprintf("%s. Analytical accounts under %s: %s", msg, account.Code, strings.Join(codes, ", "))
	}

	return shared.NewDomainError("NON_ANALYTICAL_ACCOUNT", msg)
}

// ReverseJournalEntry creates and posts the reversal of a posted entry
// and returns its source document to PENDING so it can be posted again.
func (s *EngineService) ReverseJournalEntry(ctx context.Context, organizationID, branchID, entryID uuid.UUID, userID *uuid.UUID) (*JournalEntryResponse, error) {
	var response *JournalEntryResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entry, err := repos.Entries().FindByIDForOrg(ctx, organizationID, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return shared.NewDomainError("NOT_FOUND", "Journal entry not found")
		}

		reversalNumber, err := repos.Entries().NextEntryNumber(ctx, organizationID, branchID)
		if err != nil {
			return err
		}

		reversal, err := entry.CreateReversal(
			reversalNumber,
			fmt.Sprintf("Estorno do lançamento %s", entry.EntryNumber),
			time.Now(),
		)
		if err != nil {
			return err
		}
		if userID != nil {
			reversal.SetCreatedBy(*userID)
			entry.SetUpdatedBy(*userID)
		}

		if err := repos.Entries().Save(ctx, reversal); err != nil {
			return err
		}
		if err := repos.Entries().SaveWithLock(ctx, entry); err != nil {
			return err
		}

		if entry.SourceDocumentID != nil {
			doc, err := repos.Documents().FindByIDForOrg(ctx, organizationID, *entry.SourceDocumentID)
			if err != nil {
				return err
			}
			if doc != nil && doc.AccountingStatus == fiscal.AccountingStatusPosted {
				if err := doc.ResetAccounting(); err != nil {
					return err
				}
				if userID != nil {
					doc.SetUpdatedBy(*userID)
				}
				if err := repos.Documents().SaveWithLock(ctx, doc); err != nil {
					return err
				}
			}
		}

		response = toJournalEntryResponse(reversal)
		return nil
	})
	if err != nil {
		s.logger.Warn("Journal entry reversal failed",
			zap.String("organization_id", organizationID.String()),
			zap.String("entry_id", entryID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Journal entry reversed",
		zap.String("organization_id", organizationID.String()),
		zap.String("entry_id", entryID.String()),
		zap.String("reversal_number", response.EntryNumber))

	return response, nil
}

// GetJournalEntry loads a single entry
func (s *EngineService) GetJournalEntry(ctx context.Context, organizationID, entryID uuid.UUID) (*JournalEntryResponse, error) {
	var response *JournalEntryResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entry, err := repos.Entries().FindByIDForOrg(ctx, organizationID, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return shared.NewDomainError("NOT_FOUND", "Journal entry not found")
		}
		response = toJournalEntryResponse(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ListJournalEntries lists entries for an organization
func (s *EngineService) ListJournalEntries(ctx context.Context, organizationID uuid.UUID, filter accounting.JournalEntryFilter) ([]JournalEntryResponse, int64, error) {
	var (
		responses []JournalEntryResponse
		total     int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entries, err := repos.Entries().FindAllForOrg(ctx, organizationID, filter)
		if err != nil {
			return err
		}
		total, err = repos.Entries().CountForOrg(ctx, organizationID, filter)
		if err != nil {
			return err
		}
		responses = make([]JournalEntryResponse, 0, len(entries))
		for i := range entries {
			responses = append(responses, *toJournalEntryResponse(&entries[i]))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}
