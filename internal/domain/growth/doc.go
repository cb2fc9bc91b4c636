// Package growth contains the infant growth domain model.
//
// The package defines:
//
//   - Entities: Infant, GrowthRecord, Assessment
//   - Value objects: Measurement, Sex, StandardEntry, ZScorePair, Classification
//   - The growth standard contract (Table) and its implementations:
//     SliceTable, WHO2006Table, LinearApproxTable
//   - The advisory contract (Generator, Summary, Advice) and the canned
//     fallback advice keyed by classification
//   - Repository interfaces implemented in infrastructure/persistence
//
// # Architecture
//
//  1. Zero external dependencies - only the Go standard library
//  2. Dependency inversion - the package defines the interfaces, infrastructure
//     implements them
//  3. Pure computation - ComputeZScores and Classify have no hidden state
//
// # Computing a classification
//
//	age := AgeInMonths(infant.DateOfBirth, m.MeasuredAt)
//	z, err := ComputeZScores(m, age, infant.Sex, WHO2006Table())
//	if err != nil {
//	    return err
//	}
//	c := Classify(z) // e.g. {Underweight, Moderate}
package growth
