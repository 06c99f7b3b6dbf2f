package v1

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	miningSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mining_sessions_started_total",
		Help: "Mining sessions started.",
	})

	miningSessionsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mining_sessions_settled_total",
		Help: "Expired mining sessions settled.",
	})

	coinsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mining_coins_credited_total",
		Help: "Coins credited to user balances by source.",
	}, []string{"source"})

	dailyRewardsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mining_daily_rewards_granted_total",
		Help: "Daily login rewards granted.",
	})

	concurrentUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mining_concurrent_update_conflicts_total",
		Help: "Writes rejected because the record changed since it was read.",
	}, []string{"operation"})

	clockSkewEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mining_clock_skew_total",
		Help: "Polls rejected because now preceded the session start.",
	})
)

const (
	sourceMining      = "mining"
	sourceDailyReward = "daily_reward"
)
