package errors

// Application error codes for consistent error reporting
const (
	CodeInternal    = "INTERNAL_ERROR"
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeTimeout     = "TIMEOUT"
	CodeExternal    = "EXTERNAL_SERVICE_ERROR"
	CodeCircuitOpen = "CIRCUIT_OPEN"

	// Pipeline stage failures
	CodePortfolioFetchFailed   = "PORTFOLIO_FETCH_FAILED"
	CodeAnalysisFailed         = "ANALYSIS_FAILED"
	CodeScoreCalculationFailed = "SCORE_CALCULATION_FAILED"
)

// Pipeline stage names reported in error details
const (
	StagePortfolio = "portfolio"
	StageBehavior  = "behavior"
	StageRisk      = "risk"
	StageScoring   = "scoring"
)

// Detail keys
const (
	DetailStage  = "stage"
	DetailUserID = "user_id"
)

// Sentinels for errors.Is matching by code
var (
	ErrPortfolioFetchFailed   = &AppError{Code: CodePortfolioFetchFailed}
	ErrAnalysisFailed         = &AppError{Code: CodeAnalysisFailed}
	ErrScoreCalculationFailed = &AppError{Code: CodeScoreCalculationFailed}
)

func stageError(errType ErrorType, code, stage, userID, message string, cause error) *AppError {
	appErr := WrapWithType(cause, errType, code, message)
	appErr.WithDetail(DetailStage, stage)
	appErr.WithDetail(DetailUserID, userID)
	return appErr
}

// PortfolioFetchFailed reports a failure to assemble the ledger or validate the address set
func PortfolioFetchFailed(userID string, cause error) *AppError {
	return stageError(ErrorTypeValidation, CodePortfolioFetchFailed, StagePortfolio, userID, "portfolio fetch failed", cause)
}

// AnalysisFailed reports malformed input to the behavior or risk stage
func AnalysisFailed(stage, userID string, cause error) *AppError {
	return stageError(ErrorTypeValidation, CodeAnalysisFailed, stage, userID, stage+" analysis failed", cause)
}

// ScoreCalculationFailed reports malformed input to the synthesis stage
func ScoreCalculationFailed(userID string, cause error) *AppError {
	return stageError(ErrorTypeValidation, CodeScoreCalculationFailed, StageScoring, userID, "score calculation failed", cause)
}
