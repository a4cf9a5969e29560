package constants

// 身份状态常量
const (
	IdentityNone         = "no_identity"
	IdentityGuestActive  = "guest_active"
	IdentityMergePending = "merge_pending"
	IdentityUserActive   = "user_active"
)

// 同步事件类型常量
const (
	EventSnapshotUpdated = "snapshot_updated"
	EventIdentityReset   = "identity_reset"
	EventInvoiceReady    = "invoice_ready"
)

// 异步任务名称常量
const (
	TaskInvoiceGenerate = "invoice:generate"
	QueueDefault        = "default"
	QueueCritical       = "critical"
)

// 用户角色常量
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// 发票生成重试上限
const InvoiceGenerateMaxRetry = 3

// 上下文键常量
const (
	ContextKeySessionID = "session_id"
	ContextKeyRequestID = "request_id"
)
