// Package aggregate turns the full signal set of a POI into its derived
// summary and popularity score. Both functions are pure: the same
// signals (and the same evaluation instant) always produce the same
// output, which is what makes full recomputation on every signal insert
// safe under concurrent writers.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/zOOGal/Routed/internal/types"
)

const (
	topTagsLimit     = 10
	topOrderLimit    = 10
	topWindowsLimit  = 5
	topSnippetsLimit = 5

	mentionWeight    = 2.0
	confidenceWeight = 1.0
	recencyHalfDays  = 365.0
)

// counter tracks frequencies while remembering first-seen order so ties
// rank stably.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if key == "" {
		return
	}
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns up to n keys by descending count, ties broken by
// first-seen order.
func (c *counter) top(n int) []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	if keys == nil {
		keys = []string{}
	}
	return keys
}

// Compute merges all signals for one POI into the aggregate summary.
// Empty input yields an all-empty aggregate with zero mentions.
func Compute(signals []types.POISignal) types.POIAggregate {
	vibes := newCounter()
	orders := newCounter()
	windows := newCounter()
	warnings := make(map[string]struct{})
	warningList := []string{}
	snippets := []string{}
	snippetSeen := make(map[string]struct{})
	sources := make(map[string]int)

	for _, s := range signals {
		sources[string(s.Source)]++

		for _, tag := range s.Payload.VibeTags {
			vibes.add(tag)
		}
		for _, item := range s.Payload.WhatToOrder {
			orders.add(item)
		}
		for _, w := range s.Payload.Warnings {
			if w == "" {
				continue
			}
			if _, dup := warnings[w]; !dup {
				warnings[w] = struct{}{}
				warningList = append(warningList, w)
			}
		}
		if why := s.Payload.WhySpecial; why != "" {
			if _, dup := snippetSeen[why]; !dup {
				snippetSeen[why] = struct{}{}
				snippets = append(snippets, why)
			}
		}
		for _, tw := range s.Payload.BestTimeWindows {
			windows.add(tw)
		}
	}

	if len(snippets) > topSnippetsLimit {
		snippets = snippets[:topSnippetsLimit]
	}

	return types.POIAggregate{
		TopVibeTags:        vibes.top(topTagsLimit),
		TopWhatToOrder:     orders.top(topOrderLimit),
		Warnings:           warningList,
		WhySpecialSnippets: snippets,
		BestTimeWindows:    windows.top(topWindowsLimit),
		SourcesCount:       sources,
		TotalMentions:      len(signals),
	}
}

// Score computes the deterministic popularity score:
//
//	ln(1 + mentions) * 2.0 + avg_confidence + recency_bonus
//
// where the recency bonus decays linearly from 1 to 0 as the newest
// signal ages over a year. Zero signals score 0. The evaluation instant
// is passed in so the function stays pure.
func Score(signals []types.POISignal, now time.Time) float64 {
	if len(signals) == 0 {
		return 0.0
	}

	mentions := float64(len(signals))
	mentionScore := math.Log(1+mentions) * mentionWeight

	var confSum float64
	newest := signals[0].CreatedAt
	for _, s := range signals {
		confSum += s.Confidence
		if s.CreatedAt.After(newest) {
			newest = s.CreatedAt
		}
	}
	avgConfidence := confSum / mentions

	ageDays := now.Sub(newest).Hours() / 24
	recencyBonus := math.Max(0, 1.0-ageDays/recencyHalfDays)

	return mentionScore + avgConfidence*confidenceWeight + recencyBonus
}
