package exporters

import (
	"github.com/techczech/zotero-agent-bridge/internal/zotero"
)

// ConflictDecision is the answer to an export target that already
// exists.
type ConflictDecision string

const (
	// DecisionOverwrite removes the prior target and re-exports.
	DecisionOverwrite ConflictDecision = "overwrite"
	// DecisionSkip leaves the prior target untouched and moves on.
	DecisionSkip ConflictDecision = "skip"
	// DecisionCancel aborts the remainder of the batch.
	DecisionCancel ConflictDecision = "cancel"
)

// DecisionPolicy supplies the two externally-owned decisions of an
// export run. Interactive frontends put a human behind these calls;
// the exporter tolerates arbitrarily long waits here. AutoPolicy is
// the non-interactive implementation.
type DecisionPolicy interface {
	// ResolveConflict decides what to do about an existing export
	// target for the item.
	ResolveConflict(existingPath string, item *zotero.Item) (ConflictDecision, error)

	// SelectAttachments picks which of the item's PDF attachments to
	// materialize. It is only consulted when there is more than one
	// candidate.
	SelectAttachments(item *zotero.Item, pdfs []zotero.Attachment) ([]zotero.Attachment, error)
}

// AutoPolicy answers both decisions without prompting: a fixed
// conflict decision and keep-all-PDFs.
type AutoPolicy struct {
	Conflict ConflictDecision
}

func (p AutoPolicy) ResolveConflict(existingPath string, item *zotero.Item) (ConflictDecision, error) {
	if p.Conflict == "" {
		return DecisionOverwrite, nil
	}
	return p.Conflict, nil
}

func (p AutoPolicy) SelectAttachments(item *zotero.Item, pdfs []zotero.Attachment) ([]zotero.Attachment, error) {
	return pdfs, nil
}

var _ DecisionPolicy = AutoPolicy{}
