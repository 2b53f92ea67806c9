// Package ballotengine implements the ballot/delegation engine inside the
// governance context.
//
// A chairman opens a ballot over a fixed, ordered list of proposals and
// registers voters. Each voter either votes directly or hands their weight to
// another voter; delegation chains are resolved eagerly and cycles are rejected
// when they would close. The module owns the registry, tallying and winner
// selection, and emits ballot events through an outbox-backed relay. Business
// rules live in domain/application; storage, identity and metrics sit behind
// ports.
package ballotengine
