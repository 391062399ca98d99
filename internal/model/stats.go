package model

// StatusCounts 按漏斗阶段统计子树内的线索数量。
type StatusCounts struct {
	Total     int64 `json:"total"`
	New       int64 `json:"new"`
	Following int64 `json:"following"`
	Deposit   int64 `json:"deposit"`
	Deal      int64 `json:"deal"`
	Invalid   int64 `json:"invalid"`
}

// TeamCounts 按角色统计子树内的团队规模。
// ValidCustomers 口径与团队页"有效客户"分组一致：跟进中/定金/成交。
type TeamCounts struct {
	Managers       int64 `json:"managers"`
	Agents         int64 `json:"agents"`
	Promoters      int64 `json:"promoters"`
	ValidCustomers int64 `json:"valid_customers"`
}

// TrendPoint 是趋势图上的一个点。Deals 统计的是当天新增的线索中
// 目前已经走到定金或成交的数量（同日同批转化口径，不是当日成交事件数）。
type TrendPoint struct {
	Date     string `json:"date"`
	NewLeads int64  `json:"new_leads"`
	Deals    int64  `json:"deals"`
}

// DashboardStats 是工作台首页的聚合统计结果。
type DashboardStats struct {
	StatusCounts StatusCounts `json:"status_counts"`
	TeamCounts   TeamCounts   `json:"team_counts"`
	TrendData    []TrendPoint `json:"trend_data"`
}
