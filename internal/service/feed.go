package service

import (
	"context"
	"sort"

	"example.com/minitweet/internal/models"
	"golang.org/x/sync/errgroup"
)

// feedFanout bounds concurrent timeline reads while composing a feed.
const feedFanout = 8

// ComposeFeed returns the tweets of userID and of everyone userID follows, newest first.
// The whole history is returned.
func (s *Service) ComposeFeed(ctx context.Context, userID string) ([]models.Tweet, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	authors := uniqueIDs(append([]string{u.ID}, u.Following...))
	timelines := make([][]models.Tweet, len(authors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedFanout)
	for i, authorID := range authors {
		g.Go(func() error {
			tweets, err := s.store.ListTweetsByUser(gctx, authorID)
			if err != nil {
				return err
			}
			timelines[i] = tweets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logg.Error("service/feed", "Failed to compose feed for user_id="+userID, err)
		return nil, err
	}

	seen := make(map[string]struct{})
	feed := []models.Tweet{}
	for _, tl := range timelines {
		for _, t := range tl {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			feed = append(feed, t)
		}
	}
	sortNewestFirst(feed)
	return feed, nil
}

// sortNewestFirst orders by creation time descending, ties broken by id descending.
func sortNewestFirst(tweets []models.Tweet) {
	sort.SliceStable(tweets, func(i, j int) bool {
		a, b := tweets[i], tweets[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
