package partition

import "github.com/gauthierbraillon/duofeed/internal/feed"

// SelectBest runs every strategy of the configured policy and returns the
// split with the lowest balance score. The earlier strategy wins a tie.
func (p *Partitioner) SelectBest(items []feed.Item) Result {
	if len(items) == 0 {
		return Result{Column1: []feed.Item{}, Column2: []feed.Item{}, BalanceScore: 0}
	}

	var best Result
	for i, s := range p.strategies() {
		current := s.run(p, items)
		if i == 0 || current.BalanceScore < best.BalanceScore {
			best = current
		}
	}
	return best
}
