package tools

// NewStandardRegistry builds the full ~30-strong domain tool surface in
// the same order internal/registry.Specs serves via tools/list. A test
// asserts the two orders match.
func NewStandardRegistry() *Registry {
	return NewRegistry(
		AccountSummaryTool{},
		DefiPositionsTool{},
		DecodeTransactionTool{},
		TransactionStatusTool{},
		SimulateTransactionTool{},
		SearchContractTool{},
		SwapTxTool{},
		RevokeApprovalTool{},
		GasPriceTool{},
		EstimateGasTool{},
		BlockInfoTool{},
		TokenInfoTool{},
		PoolInfoTool{},
		TokenPriceTool{},
		TokenPricesTool{},
		ApprovalStatusTool{},
		VVSFarmsTool{},
		TectonicMarketsTool{},
		CROOverviewTool{},
		ProtocolStatsTool{},
		HealthAlertsTool{},
		LiquidationRiskTool{},
		WhaleActivityTool{},
		ResolveCronosIDTool{},
		ListSupportedTokensTool{},
	)
}
