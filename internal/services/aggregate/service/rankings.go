package service

import (
	"sort"

	"bestsellers/internal/core/bookkey"
	"bestsellers/internal/services/aggregate/domain"
	"bestsellers/internal/services/aggregate/repo"
)

// BuildRankings derives the year-end categories from one year's aggregates
// Output order is fully deterministic; every sort ends on ascending isbn
func BuildRankings(
	cfg Config,
	year int,
	books []domain.BookMetrics,
	regionals []domain.RegionalMetrics,
	titles map[string]repo.TitleAuthor,
) []domain.RankingEntry {
	var out []domain.RankingEntry
	out = append(out, regionalTops(cfg, year, regionals, titles)...)
	out = append(out, mostRegional(cfg, year, books, regionals, titles)...)
	out = append(out, mostNational(cfg, year, books, titles)...)
	out = append(out, mostEfficient(cfg, year, books, titles)...)
	return out
}

// regionalTops is the per-region leaderboard by regional score
func regionalTops(cfg Config, year int, regionals []domain.RegionalMetrics, titles map[string]repo.TitleAuthor) []domain.RankingEntry {
	byRegion := make(map[string][]domain.RegionalMetrics)
	for _, rm := range regionals {
		byRegion[rm.Region] = append(byRegion[rm.Region], rm)
	}
	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	var out []domain.RankingEntry
	for _, region := range regions {
		rows := byRegion[region]
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].RegionalScore != rows[j].RegionalScore {
				return rows[i].RegionalScore > rows[j].RegionalScore
			}
			if rows[i].BestRank != rows[j].BestRank {
				return rows[i].BestRank < rows[j].BestRank
			}
			return rows[i].ISBN < rows[j].ISBN
		})
		for pos, rm := range top(rows, cfg.TopN) {
			out = append(out, entry(year, domain.CategoryRegionalTop+":"+region, pos+1, rm.ISBN, rm.RegionalScore, titles, map[string]any{
				"region":    region,
				"best_rank": rm.BestRank,
				"rsi":       rm.RSI,
			}))
		}
	}
	return out
}

// mostRegional rewards concentration: the best single-region score weighted by
// that region's share of the book's total
func mostRegional(cfg Config, year int, books []domain.BookMetrics, regionals []domain.RegionalMetrics, titles map[string]repo.TitleAuthor) []domain.RankingEntry {
	appeared := make(map[string]int, len(books))
	for _, b := range books {
		appeared[b.ISBN] = b.RegionsAppeared
	}

	type pick struct {
		isbn   string
		region string
		score  float64
		rsi    float64
	}
	best := make(map[string]pick)
	for _, rm := range regionals {
		if appeared[rm.ISBN] < cfg.MinRegionsRegional {
			continue
		}
		score := rm.RegionalScore * rm.RSI
		cur, ok := best[rm.ISBN]
		if !ok || score > cur.score || (score == cur.score && rm.Region < cur.region) {
			best[rm.ISBN] = pick{isbn: rm.ISBN, region: rm.Region, score: score, rsi: rm.RSI}
		}
	}

	picks := make([]pick, 0, len(best))
	for _, p := range best {
		picks = append(picks, p)
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].score != picks[j].score {
			return picks[i].score > picks[j].score
		}
		return picks[i].isbn < picks[j].isbn
	})

	var out []domain.RankingEntry
	for pos, p := range top(picks, cfg.TopN) {
		out = append(out, entry(year, domain.CategoryMostRegional, pos+1, p.isbn, p.score, titles, map[string]any{
			"region": p.region,
			"rsi":    p.rsi,
		}))
	}
	return out
}

// mostNational rewards evenness: lowest variance of regional share across a
// meaningful regional footprint
func mostNational(cfg Config, year int, books []domain.BookMetrics, titles map[string]repo.TitleAuthor) []domain.RankingEntry {
	eligible := make([]domain.BookMetrics, 0, len(books))
	for _, b := range books {
		if b.RegionsAppeared >= cfg.MinRegionsNational {
			eligible = append(eligible, b)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].RSIVariance != eligible[j].RSIVariance {
			return eligible[i].RSIVariance < eligible[j].RSIVariance
		}
		return eligible[i].ISBN < eligible[j].ISBN
	})

	var out []domain.RankingEntry
	for pos, b := range top(eligible, cfg.TopN) {
		out = append(out, entry(year, domain.CategoryMostNational, pos+1, b.ISBN, b.RSIVariance, titles, map[string]any{
			"regions_appeared": b.RegionsAppeared,
			"total_score":      b.TotalScore,
		}))
	}
	return out
}

// mostEfficient rewards short high-rank runs over long mediocre ones
func mostEfficient(cfg Config, year int, books []domain.BookMetrics, titles map[string]repo.TitleAuthor) []domain.RankingEntry {
	eligible := make([]domain.BookMetrics, 0, len(books))
	for _, b := range books {
		if b.WeeksOnChart >= 1 {
			eligible = append(eligible, b)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].AvgScorePerWeek != eligible[j].AvgScorePerWeek {
			return eligible[i].AvgScorePerWeek > eligible[j].AvgScorePerWeek
		}
		return eligible[i].ISBN < eligible[j].ISBN
	})

	var out []domain.RankingEntry
	for pos, b := range top(eligible, cfg.TopN) {
		out = append(out, entry(year, domain.CategoryMostEfficient, pos+1, b.ISBN, b.AvgScorePerWeek, titles, map[string]any{
			"weeks_on_chart": b.WeeksOnChart,
			"total_score":    b.TotalScore,
		}))
	}
	return out
}

func top[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

func entry(year int, category string, position int, isbn string, score float64, titles map[string]repo.TitleAuthor, meta map[string]any) domain.RankingEntry {
	ta := titles[isbn]
	if ta.Title != "" {
		// folded identity lets consumers collapse editions that share a work
		meta["work_key"] = bookkey.Compose(ta.Title, ta.Author)
	}
	return domain.RankingEntry{
		Year:     year,
		Category: category,
		Position: position,
		ISBN:     isbn,
		Title:    ta.Title,
		Author:   ta.Author,
		Score:    score,
		Metadata: meta,
	}
}
