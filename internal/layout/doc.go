// Package layout sizes fixed-size index pages.
//
// A page of P bytes carries an H byte header followed by d child slots. Each
// slot has a file-offset pointer (F bytes) and a page-offset pointer (O bytes),
// and d-1 separator keys of K bytes sit between the slots:
//
//	┌────────┬────┬────┬─────┬────┬────┬─────┬─────┬────┬────┬──────────┐
//	│ header │ F₁ │ O₁ │ K₁  │ F₂ │ O₂ │ K₂  │ ... │ F_d│ O_d│  unused  │
//	└────────┴────┴────┴─────┴────┴────┴─────┴─────┴────┴────┴──────────┘
//
//	used(d) = K·(d-1) + F·d + O·d  ≤  P - H
//
// MaxOrder finds the largest d that fits a page, PageSize is its inverse, and
// Efficiency estimates how much space a layout wastes against a reference
// layout at a given record count.
package layout
