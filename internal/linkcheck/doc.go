// Package linkcheck implements the single-page link validation pipeline.
//
// A run loads one page through a rendering Session, groups its anchors into
// same-page fragments, same-site links and off-site links, deduplicates them
// while keeping occurrence counts, and verifies every distinct target. Results
// are streamed as they complete rather than batched.
//
// Pipeline overview:
//   - Count turns the raw per-category link lists into Occurrences.
//   - IsFragmentValid queries the currently loaded document for an element whose
//     id or name matches a fragment. Query failures count as "missing".
//   - IsLinkValid opens an isolated page, navigates, and classifies the result as
//     an Observation or a Failure.
//   - Schedule drives validations through a fixed pool of lanes bounded by the
//     configured concurrency.
//   - Checker sequences the categories (samePage, sameSite, offSite) and owns the
//     Session, releasing it exactly once on every exit path including a consumer
//     that stops ranging early.
package linkcheck
