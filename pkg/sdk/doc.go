// Package lostmatch embeds the lost/found image matcher in a Go program
// backed by Valkey or Redis.
//
// Items are stored as hashes; matching encodes item photos through the
// supplied ImageEncoder and ranks candidates by visual similarity.
//
//	client, _ := lostmatch.New(ctx,
//	    lostmatch.WithRedis("localhost:6379", ""),
//	    lostmatch.WithEncoder(myEncoder),
//	)
//	_ = client.PutItems(ctx, lostmatch.Item{ID: "l1", Kind: lostmatch.KindLost, Image: png})
//	matches, _ := client.MatchLost(ctx, "l1", 5)
package lostmatch
