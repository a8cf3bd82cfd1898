// Package navigation tracks where the user is and mediates every move.
//
// It replaces direct use of a browser's History API with three cooperating
// pieces:
//
//  1. History: a doubly linked graph of page entries in navigation order,
//     addressable by the entry id stamped into each native history state.
//  2. Params: typed, per-entry state (an in-flight page load, a scroll
//     position, a form draft) with lifecycle hooks that fire as the entry is
//     entered, left, pruned or abandoned.
//  3. Agents: an ordered interception chain consulted before each navigation
//     commits. An agent can rewrite the target or veto it by not calling Next.
//
// # Navigation lifecycle
//
// Open and Replace requests are queued on one chain per Navigation. A request
// that is no longer the newest in the chain when it starts, or when it is
// about to touch native history, resolves as superseded:
//
//	requested -> superseded | leave-vetoed | agent-vetoed | failed   (stay)
//	requested -> committed                                           (enter)
//
// Vetoed and superseded requests return (nil, nil). Failed ones return the
// error. Either way a StayEvent is emitted and the speculative entry's params
// receive Stay.
//
// # Params
//
//	scroll := navigation.NewValueParam[int]("scroll", true)
//	page, err := nav.Open(ctx, "/list", navigation.With(scroll, 120))
//	pos, ok := navigation.Get(page, scroll)
//
// Back, Forward and Go delegate to the native history; the resulting popstate
// is fed back through PopState and resolves the stored entry by id.
package navigation
