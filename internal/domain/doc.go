// Package domain contains the core business entities, value objects, and
// domain logic of the application. It represents the heart of the system,
// independent of any specific infrastructure or delivery mechanism.
//
// The Song aggregate is mutated only through its named transition methods,
// and its overall status is never stored: it is recomputed from the three
// phase statuses by DeriveOverallStatus.
package domain
