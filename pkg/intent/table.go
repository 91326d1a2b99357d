package intent

import "github.com/zen-systems/unigate/pkg/schema"

// Table maps task categories to their trigger phrases and to the
// capability tags a request in that category requires. Both sides are
// closed vocabularies validated at config load time.
type Table struct {
	Triggers     map[schema.TaskCategory][]string
	Capabilities map[schema.TaskCategory][]string
	ExtraTags    map[string]string // trigger phrase -> additional capability tag
}

// Capability tags understood by the scorer. Platform profiles declare
// strengths from this set.
const (
	TagChatConversation   = "chat_conversation"
	TagKnowledgeBase      = "knowledge_base"
	TagDocumentQA         = "document_qa"
	TagHybridRetrieval    = "hybrid_retrieval"
	TagWorkflowAutomation = "workflow_automation"
	TagMultiStep          = "multi_step_processing"
	TagWebhookIntegration = "webhook_integration"
	TagVisualFlowDesign   = "visual_flow_design"
	TagComponentGraph     = "component_orchestration"
	TagMultiLanguage      = "multi_language"
	TagEnterpriseGrade    = "enterprise_grade"
)

// KnownTags lists every valid capability tag.
func KnownTags() []string {
	return []string{
		TagChatConversation,
		TagKnowledgeBase,
		TagDocumentQA,
		TagHybridRetrieval,
		TagWorkflowAutomation,
		TagMultiStep,
		TagWebhookIntegration,
		TagVisualFlowDesign,
		TagComponentGraph,
		TagMultiLanguage,
		TagEnterpriseGrade,
	}
}

// IsKnownTag reports whether tag belongs to the closed capability set.
func IsKnownTag(tag string) bool {
	for _, t := range KnownTags() {
		if t == tag {
			return true
		}
	}
	return false
}

// DefaultTable returns the built-in trigger and capability tables.
func DefaultTable() Table {
	return Table{
		Triggers: map[schema.TaskCategory][]string{
			schema.CategoryConversational: {
				"chat", "hello", "explain", "tell me", "help me understand",
				"what is", "how do", "why does", "translate",
			},
			schema.CategoryRetrieval: {
				"document", "contract", "pdf", "report", "manual", "paper",
				"summarize", "search", "find", "look up", "knowledge base",
				"from the docs", "cite", "reference",
			},
			schema.CategoryAutomation: {
				"automate", "workflow", "schedule", "trigger", "batch",
				"pipeline", "every day", "notify", "sync", "webhook",
				"when a", "recurring",
			},
			schema.CategoryVisualFlow: {
				"flow", "canvas", "drag and drop", "node graph", "visual",
				"prototype", "wire up", "components",
			},
		},
		Capabilities: map[schema.TaskCategory][]string{
			schema.CategoryConversational: {TagChatConversation},
			schema.CategoryRetrieval:      {TagDocumentQA},
			schema.CategoryAutomation:     {TagWorkflowAutomation},
			schema.CategoryVisualFlow:     {TagVisualFlowDesign},
		},
		ExtraTags: map[string]string{
			"knowledge base": TagKnowledgeBase,
			"webhook":        TagWebhookIntegration,
			"batch":          TagMultiStep,
			"node graph":     TagComponentGraph,
			"translate":      TagMultiLanguage,
		},
	}
}
