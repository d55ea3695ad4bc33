// Package flows holds the pure orchestration logic behind the resolver's
// public operations: the priority-ordered resolution chain, the bounded
// establish retry loop, and the onboarding-completion transition.
//
// Each flow takes its collaborators as a deps struct of function fields and
// returns a result carrying a classified failure kind, so the root package
// maps failures to its public sentinels and the flows stay testable without
// Redis or a live backend.
package flows
