// Package circulation implements the checkout desk workflow: users submit
// checkout and return requests, librarians approve or deny them, and every
// decision keeps the catalog, loan ledger and fine ledger consistent.
//
// The Engine is parameterized over a Store. Each mutating call runs under
// the engine mutex inside one Store.Update, so a decision is a single
// atomic read-modify-write regardless of the backend.
package circulation
