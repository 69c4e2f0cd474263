package memory

import (
	"context"
	"sync"

	"custos/internal/core"
	ports "custos/internal/sheets"
)

// Store serves a fixed raw table, for development and tests.
type Store struct {
	mu    sync.Mutex
	table core.RawTable
	err   error
	loads int
}

var _ ports.Source = (*Store)(nil)

func New(table core.RawTable) *Store {
	return &Store{table: table}
}

// NewSample returns a store seeded with a small cost sheet.
func NewSample() *Store {
	return New(core.RawTable{
		Columns: []string{"Planta", "Data de lançamento", "Centro custo", "Tipo de documento", "Denom.classe custo", "Valor/MR", "Nome do usuário"},
		Rows: [][]any{
			{"P100", "03/01/2025", "CC1001", "AA", "Energia elétrica", "12.450,90", "ana.souza"},
			{nil, "17/01/2025", "CC1001", "AA", "Manutenção", "3.200,00", "ana.souza"},
			{nil, "28/01/2025", "CC1002", "RE", "Frete", "1.980,35", "joao.lima"},
			{"P200", "04/02/2025", "CC2001", "AA", "Energia elétrica", "10.120,00", "joao.lima"},
			{nil, "12/02/2025", "CC2001", "SA", "Estorno frete", "-450,00", "joao.lima"},
			{nil, "20/02/2025", "CC1002", "RE", "Material de escritório", "812,40", "ana.souza"},
			{"P100", "05/03/2025", "CC1001", "AA", "Energia elétrica", "11.870,10", "ana.souza"},
			{nil, "19/03/2025", "CC1003", "RE", "Consultoria", "7.500,00", "maria.reis"},
		},
	})
}

// Set replaces the served table.
func (s *Store) Set(table core.RawTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.err = nil
}

// Fail makes subsequent loads return err.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Load returns the stored table.
func (s *Store) Load(_ context.Context) (core.RawTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return core.RawTable{}, s.err
	}
	return s.table, nil
}

// Loads returns how many times Load was called.
func (s *Store) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func (s *Store) SourceKey() string {
	return "memory:"
}
