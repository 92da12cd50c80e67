package gh

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"
)

// ItemDetail is the rendered view of one project item used for
// notifications. URL is empty for draft items.
type ItemDetail struct {
	Title       string
	URL         string
	Project     ProjectRef
	FieldValues []FieldValue
}

// ProjectRef identifies the board an item lives on.
type ProjectRef struct {
	Title string
	URL   string
}

// FieldValue is one field/value pair on an item. Only single-select values
// carry a field name; other value kinds come back empty.
type FieldValue struct {
	Field string
	Value string
}

// ProjectItem is an issue's membership in one project, with the project's
// Status field when the project has one.
type ProjectItem struct {
	ID          string
	ProjectID   string
	StatusField *StatusField
}

// StatusField is a project's single-select field literally named "Status".
type StatusField struct {
	ID      string
	Options []Option
}

// Option is one selectable value of a single-select field.
type Option struct {
	ID   string
	Name string
}

// ItemDetail fetches the notification view of a project item: title, URL,
// parent project, and current field values.
func (c *Client) ItemDetail(ctx context.Context, itemID string, installationID int64) (*ItemDetail, error) {
	req := graphql.NewRequest(`
		query($itemId: ID!) {
			node(id: $itemId) {
				... on ProjectV2Item {
					project {
						title
						url
					}
					content {
						... on Issue {
							title
							url
						}
						... on PullRequest {
							title
							url
						}
						... on DraftIssue {
							title
						}
					}
					fieldValues(first: 50) {
						nodes {
							... on ProjectV2ItemFieldSingleSelectValue {
								name
								field {
									... on ProjectV2SingleSelectField {
										name
									}
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("itemId", itemID)

	var resp struct {
		Node struct {
			Project struct {
				Title string `json:"title"`
				URL   string `json:"url"`
			} `json:"project"`
			Content *struct {
				Title string `json:"title"`
				URL   string `json:"url"`
			} `json:"content"`
			FieldValues struct {
				Nodes []struct {
					Name  string `json:"name"`
					Field *struct {
						Name string `json:"name"`
					} `json:"field"`
				} `json:"nodes"`
			} `json:"fieldValues"`
		} `json:"node"`
	}

	if err := c.makeRequest(ctx, installationID, req, &resp); err != nil {
		return nil, fmt.Errorf("fetch item detail: %w", err)
	}

	detail := &ItemDetail{
		Project: ProjectRef{
			Title: resp.Node.Project.Title,
			URL:   resp.Node.Project.URL,
		},
	}
	if resp.Node.Content != nil {
		detail.Title = resp.Node.Content.Title
		detail.URL = resp.Node.Content.URL
	}
	for _, node := range resp.Node.FieldValues.Nodes {
		fv := FieldValue{Value: node.Name}
		if node.Field != nil {
			fv.Field = node.Field.Name
		}
		detail.FieldValues = append(detail.FieldValues, fv)
	}
	return detail, nil
}

// IssueProjectItems lists the projects an issue is on, including each
// project's Status single-select field when it has one. The field lookup is
// by the literal name "Status"; a project without such a field yields a nil
// StatusField.
func (c *Client) IssueProjectItems(ctx context.Context, issueID string, installationID int64) ([]ProjectItem, error) {
	req := graphql.NewRequest(`
		query($issueId: ID!) {
			node(id: $issueId) {
				... on Issue {
					projectItems(first: 20) {
						nodes {
							id
							project {
								id
								field(name: "Status") {
									... on ProjectV2SingleSelectField {
										id
										options {
											id
											name
										}
									}
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("issueId", issueID)

	var resp struct {
		Node struct {
			ProjectItems struct {
				Nodes []struct {
					ID      string `json:"id"`
					Project struct {
						ID    string `json:"id"`
						Field *struct {
							ID      string `json:"id"`
							Options []struct {
								ID   string `json:"id"`
								Name string `json:"name"`
							} `json:"options"`
						} `json:"field"`
					} `json:"project"`
				} `json:"nodes"`
			} `json:"projectItems"`
		} `json:"node"`
	}

	if err := c.makeRequest(ctx, installationID, req, &resp); err != nil {
		return nil, fmt.Errorf("fetch issue project items: %w", err)
	}

	items := make([]ProjectItem, 0, len(resp.Node.ProjectItems.Nodes))
	for _, node := range resp.Node.ProjectItems.Nodes {
		item := ProjectItem{
			ID:        node.ID,
			ProjectID: node.Project.ID,
		}
		if f := node.Project.Field; f != nil {
			field := &StatusField{ID: f.ID}
			for _, opt := range f.Options {
				field.Options = append(field.Options, Option{ID: opt.ID, Name: opt.Name})
			}
			item.StatusField = field
		}
		items = append(items, item)
	}
	return items, nil
}
