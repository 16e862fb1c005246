// Package refdata simulates the external directories the validators consult:
// the postal code base, the tax registry and the phone carrier directory.
// Lookups are deterministic in-process data so the validation pipeline stays
// reproducible in tests and local runs; a production deployment would put
// real clients behind the same interface.
package refdata

import "strings"

// PostalCodeEntry is what the postal directory knows about a code.
type PostalCodeEntry struct {
	Street       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	AreaCode     string
	Latitude     float64
	Longitude    float64
	HasGeo       bool
}

// TaxIDEntry is the registry view of a CPF or CNPJ.
type TaxIDEntry struct {
	Name   string
	Status string
	Active bool
}

// Tax registry statuses.
const (
	StatusRegular  = "REGULAR"
	StatusSuspenso = "SUSPENSO"
	StatusAtiva    = "ATIVA"
	StatusBaixada  = "BAIXADA"
)

// PhoneEntry is the carrier directory view of a full number (digits with
// country code, no plus sign).
type PhoneEntry struct {
	Subscriber string
	Operator   string
	Active     bool
}

// Directory exposes the external lookups validators depend on.
type Directory interface {
	// PostalCode looks up an 8-digit code. A miss means the code is
	// plausible but unknown to the directory.
	PostalCode(code string) (*PostalCodeEntry, bool)
	// AddressMismatchProbe returns the code that simulates a postal
	// code contradicting the submitted address.
	AddressMismatchProbe() string
	// TaxID looks up cleaned CPF/CNPJ digits in the registry.
	TaxID(digits string) (*TaxIDEntry, bool)
	// Phone looks up full number digits in the carrier directory.
	Phone(digits string) (*PhoneEntry, bool)
	// DomainResolves reports whether an email domain has known MX
	// coverage in the directory.
	DomainResolves(domain string) bool
}

// Static is the seeded Directory used in development and tests.
type Static struct {
	postal      map[string]PostalCodeEntry
	taxIDs      map[string]TaxIDEntry
	phones      map[string]PhoneEntry
	domains     map[string]struct{}
	mismatchCEP string
}

// NewStatic builds the seeded directory.
func NewStatic() *Static {
	return &Static{
		postal: map[string]PostalCodeEntry{
			"01001000": {
				Street:       "Praça da Sé",
				Complement:   "lado ímpar",
				Neighborhood: "Sé",
				City:         "São Paulo",
				State:        "SP",
				AreaCode:     "11",
				Latitude:     -23.5505,
				Longitude:    -46.6333,
				HasGeo:       true,
			},
			"20040003": {
				Street:       "Avenida Rio Branco",
				Neighborhood: "Centro",
				City:         "Rio de Janeiro",
				State:        "RJ",
				AreaCode:     "21",
				Latitude:     -22.9068,
				Longitude:    -43.1729,
				HasGeo:       true,
			},
			"70040010": {
				Street:       "Esplanada dos Ministérios",
				Neighborhood: "Zona Cívico-Administrativa",
				City:         "Brasília",
				State:        "DF",
				AreaCode:     "61",
				HasGeo:       false,
			},
			"30130010": {
				Street:       "Praça Sete de Setembro",
				Neighborhood: "Centro",
				City:         "Belo Horizonte",
				State:        "MG",
				AreaCode:     "31",
				Latitude:     -19.9191,
				Longitude:    -43.9386,
				HasGeo:       true,
			},
		},
		taxIDs: map[string]TaxIDEntry{
			// CPFs
			"11144477735": {Name: "Maria da Silva", Status: StatusRegular, Active: true},
			"52998224725": {Name: "João Pereira", Status: StatusSuspenso, Active: false},
			// CNPJs
			"11222333000181": {Name: "Empresa Exemplo LTDA", Status: StatusAtiva, Active: true},
			"06990590000123": {Name: "Comercial Encerrada ME", Status: StatusBaixada, Active: false},
		},
		phones: map[string]PhoneEntry{
			"5511983802243": {Subscriber: "Maria da Silva", Operator: "Vivo", Active: true},
			"5521987654221": {Subscriber: "Carlos Souza", Operator: "Claro", Active: false},
			"551138542760":  {Subscriber: "Empresa Exemplo LTDA", Operator: "TIM", Active: true},
		},
		domains: map[string]struct{}{
			"gmail.com":       {},
			"hotmail.com":     {},
			"outlook.com":     {},
			"yahoo.com.br":    {},
			"uol.com.br":      {},
			"terra.com.br":    {},
			"example.com":     {},
			"empresa.com.br":  {},
			"clientes.com.br": {},
		},
		mismatchCEP: "07273121",
	}
}

func (s *Static) PostalCode(code string) (*PostalCodeEntry, bool) {
	e, ok := s.postal[code]
	if !ok {
		return nil, false
	}
	return &e, true
}

func (s *Static) AddressMismatchProbe() string { return s.mismatchCEP }

func (s *Static) TaxID(digits string) (*TaxIDEntry, bool) {
	e, ok := s.taxIDs[digits]
	if !ok {
		return nil, false
	}
	return &e, true
}

func (s *Static) Phone(digits string) (*PhoneEntry, bool) {
	e, ok := s.phones[digits]
	if !ok {
		return nil, false
	}
	return &e, true
}

func (s *Static) DomainResolves(domain string) bool {
	_, ok := s.domains[strings.ToLower(domain)]
	return ok
}
