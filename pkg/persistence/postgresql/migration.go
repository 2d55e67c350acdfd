package postgresql

// migrations returns the numbered schema migrations for the workflow store.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflow_templates (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category VARCHAR(100) NOT NULL DEFAULT '',
				trigger_type VARCHAR(20) NOT NULL,
				trigger_config JSONB NOT NULL DEFAULT '{}',
				actions JSONB NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				is_public BOOLEAN NOT NULL DEFAULT FALSE,
				usage_count BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_templates_trigger_type
				ON workflow_templates (trigger_type) WHERE is_active;
			CREATE INDEX IF NOT EXISTS idx_templates_usage
				ON workflow_templates (usage_count DESC);

			CREATE TABLE IF NOT EXISTS workflow_executions (
				id UUID PRIMARY KEY,
				template_id UUID REFERENCES workflow_templates (id) ON DELETE SET NULL,
				workflow_name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(20) NOT NULL,
				trigger_data JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(20) NOT NULL,
				variables JSONB NOT NULL DEFAULT '{}',
				current_action_id VARCHAR(255) NOT NULL DEFAULT '',
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_executions_status
				ON workflow_executions (status);
			CREATE INDEX IF NOT EXISTS idx_executions_started
				ON workflow_executions (started_at DESC);

			CREATE TABLE IF NOT EXISTS execution_steps (
				id VARCHAR(255) NOT NULL,
				execution_id UUID NOT NULL REFERENCES workflow_executions (id) ON DELETE CASCADE,
				action_id VARCHAR(255) NOT NULL,
				action_type VARCHAR(50) NOT NULL,
				action_name VARCHAR(255) NOT NULL,
				action_config JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(20) NOT NULL,
				output JSONB,
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				PRIMARY KEY (execution_id, id)
			);

			CREATE TABLE IF NOT EXISTS webhook_subscriptions (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				url TEXT NOT NULL,
				secret TEXT NOT NULL DEFAULT '',
				events JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
