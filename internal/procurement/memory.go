package procurement

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepository keeps procurement data in process. It backs test mode and
// the package tests; it has no transactions, only the version check.
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	pos      map[int64]PurchaseOrder
	steps    map[int64]map[Stage]WorkflowStep
	receipts map[int64]GoodsReceipt
	matches  map[int64]ThreeWayMatch
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		pos:      make(map[int64]PurchaseOrder),
		steps:    make(map[int64]map[Stage]WorkflowStep),
		receipts: make(map[int64]GoodsReceipt),
		matches:  make(map[int64]ThreeWayMatch),
	}
}

func (r *MemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func clonePO(po PurchaseOrder) PurchaseOrder {
	po.Lines = append([]POLine(nil), po.Lines...)
	return po
}

func (r *MemoryRepository) InsertPO(ctx context.Context, po *PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	po.ID = r.id()
	for i := range po.Lines {
		po.Lines[i].ID = r.id()
		po.Lines[i].POID = po.ID
	}
	r.pos[po.ID] = clonePO(*po)
	return nil
}

func (r *MemoryRepository) GetPO(ctx context.Context, id int64, forUpdate bool) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	po, ok := r.pos[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return clonePO(po), nil
}

func (r *MemoryRepository) UpdatePO(ctx context.Context, po *PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.pos[po.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != po.Version {
		return ErrVersionConflict
	}
	po.Version++
	r.pos[po.ID] = clonePO(*po)
	return nil
}

func (r *MemoryRepository) ListPOs(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []PurchaseOrder
	for _, po := range r.pos {
		if filter.Status != "" && po.Status != filter.Status {
			continue
		}
		if filter.SupplierID > 0 && po.SupplierID != filter.SupplierID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(po.Number), search) && !strings.Contains(strings.ToLower(po.SupplierName), search) {
			continue
		}
		po.Lines = nil
		out = append(out, po)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Page.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Page.Offset:]
	if filter.Page.Limit > 0 && len(out) > filter.Page.Limit {
		out = out[:filter.Page.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) InsertSteps(ctx context.Context, steps []WorkflowStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range steps {
		if r.steps[st.POID] == nil {
			r.steps[st.POID] = make(map[Stage]WorkflowStep)
		}
		r.steps[st.POID][st.Stage] = st
	}
	return nil
}

func (r *MemoryRepository) ListSteps(ctx context.Context, poID int64) ([]WorkflowStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return orderSteps(r.steps[poID]), nil
}

func (r *MemoryRepository) UpdateStep(ctx context.Context, st WorkflowStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.steps[st.POID][st.Stage]
	if !ok || current.Status.Final() {
		return nil
	}
	r.steps[st.POID][st.Stage] = st
	return nil
}

func (r *MemoryRepository) InsertGoodsReceipt(ctx context.Context, gr *GoodsReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gr.ID = r.id()
	stored := *gr
	stored.Lines = append([]GRLine(nil), gr.Lines...)
	r.receipts[gr.ID] = stored
	return nil
}

func (r *MemoryRepository) GetGoodsReceipt(ctx context.Context, id int64) (GoodsReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gr, ok := r.receipts[id]
	if !ok {
		return GoodsReceipt{}, ErrNotFound
	}
	gr.Lines = append([]GRLine(nil), gr.Lines...)
	return gr, nil
}

func (r *MemoryRepository) ListGoodsReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []GoodsReceipt
	for _, gr := range r.receipts {
		if gr.POID == poID {
			gr.Lines = append([]GRLine(nil), gr.Lines...)
			out = append(out, gr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) UpsertMatch(ctx context.Context, m ThreeWayMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.Discrepancies = append([]string{}, m.Discrepancies...)
	r.matches[m.POID] = m
	return nil
}

func (r *MemoryRepository) GetMatch(ctx context.Context, poID int64) (ThreeWayMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[poID]
	if !ok {
		return ThreeWayMatch{}, ErrNotFound
	}
	m.Discrepancies = append([]string{}, m.Discrepancies...)
	return m, nil
}
