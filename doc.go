// Package poscache maintains a push-updated mirror of positional data
// (collateral, debt, health metrics, reward points) owned authoritatively by
// external ledger modules, serving very cheap reads with a guarded live
// fallback when the mirror is stale.
//
// Components:
//   - Provider: byte store with retention (Ristretto, BigCache, Redis).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - ledger.Module[V]: the authoritative value source, always read through
//     a guarded call.
//   - directory.WriterSet: short-TTL cached allow-list of push-authorized
//     writers, failing closed on expiry.
//   - degrade.Recorder: append-only degradation events for repair tooling.
//
// Consistency protocol per key:
//   - version increases by exactly 1 per accepted push; a declared
//     NextVersion must equal current+1 (strict CAS), which is the sole
//     mechanism letting independent writers race safely on one key.
//   - replaying an already-applied (RequestID, version) pair is a verified
//     no-op; sequence numbers reject reordered retries.
//   - pushed values are confirmed against a live ledger read before they are
//     cached; a mismatch or ledger failure rejects the push without mutating
//     state.
//   - a delta arriving on a stale base is discarded in favor of a full
//     resync -- arithmetic against an unconfirmed base risks double counting.
//   - freshness is derived at read time from the record's update timestamp;
//     staleness is never stored. Stale reads fall back to a guarded ledger
//     read flagged as uncached.
//
// Keys live under "pos:<ns>:<subject>:<resource>" in the provider keyspace.
package poscache
