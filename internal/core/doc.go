// Package core holds the load-sheet pipeline: everything between an
// uploaded sheet and the final export, independent of any transport.
//
// The web server and the loadsheet command both drive it through [Service],
// which keeps one in-memory session per uploaded sheet.
//
// # Pipeline
//
// A session moves through these steps in order:
//
//  1. [Service.CreateSession] parses the upload and suggests a column
//     mapping with [SuggestMapping].
//  2. [Service.SetMapping] and [Service.SetKinds] adjust the mapping and the
//     point kind of each raw point type.
//  3. [Service.Normalize] builds the working table (see [Normalize]).
//  4. [Service.RunStage] or [Service.Validate] run the check stages 2-5.
//     Each stage unlocks only after every earlier stage passed, and rerunning
//     a stage discards it and everything after it.
//  5. [Service.JoinFacets] attaches facet blobs and seeds the unit, enum and
//     facet-name resolvers. Overrides are applied phase by phase, see
//     [Service.AdvancePhase].
//  6. [Service.Finalize] expands the facets into columns.
//  7. [Service.JoinDeviceMeta] optionally adds device location and type.
//  8. [Service.Export] builds the final rows.
//
// # Checks
//
// Checks are registered per stage in [StageChecks]. A [Runner] executes a
// stage's checks in order, publishes live [CheckStatus] values and stops at
// the first failing check. Offending rows of a failed check can be
// downloaded in full even though the report only carries a preview.
//
// # Concurrency
//
// Stage runs and normalization take a slot from the shared [RunLimiter].
// Changing the mapping or kinds, or rerunning a stage, supersedes any run in
// flight; its result is discarded with [ErrRunSuperseded].
//
// # Errors
//
// Operations return wrapped sentinel errors such as [ErrSessionNotFound] and
// [ErrStageLocked]. [MapError] turns any of them into a coded message that
// is safe to show to users.
package core
