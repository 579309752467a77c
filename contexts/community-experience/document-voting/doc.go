// Package documentvoting implements document voting inside the
// community-experience context.
//
// Any stored document can carry a voting state: two disjoint, ordered sets of
// voter identifiers recording who upvoted and who downvoted it. The module
// owns the vote transitions (upvote, downvote, unvote), tally and ranking
// reads, and vote-changed event production through an outbox-backed relay.
// Storage engines sit behind ports so the same rules run on Postgres,
// MongoDB, Redis, or the in-process store.
package documentvoting
