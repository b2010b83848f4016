// Package cnb fetches the Czech National Bank daily rate fixing.
//
// The Client is a plain typed binding to the CNB rate feed: a single GET
// per call, no retries. The Provider runs the Client through a
// resilience.Pipeline and adapts the feed into CZK-denominated
// exchange rates.
//
// Feed: https://api.cnb.cz/cnbapi/exrates/daily?lang=EN
package cnb
