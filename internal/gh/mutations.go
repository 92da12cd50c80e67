package gh

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"
)

// Reaction contents the service uses, as the GraphQL ReactionContent enum
// spells them.
const (
	ReactionThumbsUp = "THUMBS_UP"
	ReactionConfused = "CONFUSED"
)

// AddReaction puts a reaction on a comment (or any reactable subject).
func (c *Client) AddReaction(ctx context.Context, subjectID, content string, installationID int64) error {
	req := graphql.NewRequest(`
		mutation($subjectId: ID!, $content: ReactionContent!) {
			addReaction(input: {subjectId: $subjectId, content: $content}) {
				reaction {
					id
				}
			}
		}
	`)
	req.Var("subjectId", subjectID)
	req.Var("content", content)

	var resp struct {
		AddReaction struct {
			Reaction struct {
				ID string `json:"id"`
			} `json:"reaction"`
		} `json:"addReaction"`
	}

	if err := c.makeRequest(ctx, installationID, req, &resp); err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	return nil
}

// AddComment posts a comment under an issue or pull request.
func (c *Client) AddComment(ctx context.Context, subjectID, body string, installationID int64) error {
	req := graphql.NewRequest(`
		mutation($subjectId: ID!, $body: String!) {
			addComment(input: {subjectId: $subjectId, body: $body}) {
				commentEdge {
					node {
						id
					}
				}
			}
		}
	`)
	req.Var("subjectId", subjectID)
	req.Var("body", body)

	var resp struct {
		AddComment struct {
			CommentEdge struct {
				Node struct {
					ID string `json:"id"`
				} `json:"node"`
			} `json:"commentEdge"`
		} `json:"addComment"`
	}

	if err := c.makeRequest(ctx, installationID, req, &resp); err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

// UpdateItemField sets a project item's single-select field to the given
// option. The executor uses this to apply due moves.
func (c *Client) UpdateItemField(ctx context.Context, projectID, itemID, fieldID, optionID string, installationID int64) error {
	req := graphql.NewRequest(`
		mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
			updateProjectV2ItemFieldValue(
				input: {
					projectId: $projectId
					itemId: $itemId
					fieldId: $fieldId
					value: $value
				}
			) {
				projectV2Item {
					id
				}
			}
		}
	`)
	req.Var("projectId", projectID)
	req.Var("itemId", itemID)
	req.Var("fieldId", fieldID)
	req.Var("value", map[string]interface{}{
		"singleSelectOptionId": optionID,
	})

	var resp struct {
		UpdateProjectV2ItemFieldValue struct {
			ProjectV2Item struct {
				ID string `json:"id"`
			} `json:"projectV2Item"`
		} `json:"updateProjectV2ItemFieldValue"`
	}

	if err := c.makeRequest(ctx, installationID, req, &resp); err != nil {
		return fmt.Errorf("update item field: %w", err)
	}
	return nil
}
