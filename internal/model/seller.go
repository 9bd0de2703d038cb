package model

import "strings"

// SellerRecord is a reseller as scraped from the marketplace.
type SellerRecord struct {
	SellerID string `json:"seller_id" yaml:"seller_id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Siret    string `json:"siret,omitempty" yaml:"siret,omitempty"`
	Siren    string `json:"siren,omitempty" yaml:"siren,omitempty"`
}

// LegalCode returns the registry identifier used for the SIRENE lookup:
// the establishment code (siret) when known, else the company code (siren).
// Empty means the seller is outside the registry's jurisdiction.
func (s SellerRecord) LegalCode() string {
	if code := strings.TrimSpace(s.Siret); code != "" {
		return code
	}
	return strings.TrimSpace(s.Siren)
}

// Organization is one SIRENE registry entry.
type Organization struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Siret   string `json:"siret,omitempty" yaml:"siret,omitempty"`
	Siren   string `json:"siren,omitempty" yaml:"siren,omitempty"`
}

// RegistryRecord is the SIRENE answer for a legal code.
type RegistryRecord struct {
	Organizations []Organization `json:"organizations" yaml:"organizations"`
}

// Primary returns the authoritative organization (the first one), or nil.
func (r *RegistryRecord) Primary() *Organization {
	if r == nil || len(r.Organizations) == 0 {
		return nil
	}
	org := r.Organizations[0]
	return &org
}
