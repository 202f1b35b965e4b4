package rpc

import "context"

// SuggestOptions are the optional parameters of Suggest.
type SuggestOptions struct {
	Filename     string
	Workspace    string
	WithSnippets *bool
	All          *bool
}

// Prepare asks the server to load a workspace ahead of time.
func (c *Client) Prepare(ctx context.Context, workspace string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.Request(ctx, "prepare", Params{Workspace: workspace}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Update tells the server a file changed on disk.
func (c *Client) Update(ctx context.Context, filename, workspace string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.Request(ctx, "update", Params{Filename: filename, Workspace: workspace}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggest requests completion candidates for the cursor position.
// Line is zero-based; column is the completion-start offset.
func (c *Client) Suggest(ctx context.Context, text string, line, column int, opts SuggestOptions) (*SuggestResponse, error) {
	params := Params{
		Text:         &text,
		Line:         &line,
		Column:       &column,
		Filename:     opts.Filename,
		Workspace:    opts.Workspace,
		WithSnippets: opts.WithSnippets,
		All:          opts.All,
	}

	var resp SuggestResponse
	if err := c.Request(ctx, "suggest", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Define requests the definition locations of the symbol at the cursor.
func (c *Client) Define(ctx context.Context, text string, line, column int, filename, workspace string) (*SuggestResponse, error) {
	params := Params{
		Text:      &text,
		Line:      &line,
		Column:    &column,
		Filename:  filename,
		Workspace: workspace,
	}

	var resp SuggestResponse
	if err := c.Request(ctx, "define", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resolve requests documentation for a fully qualified symbol path.
func (c *Client) Resolve(ctx context.Context, path, filename, workspace string) (*SuggestResponse, error) {
	params := Params{
		Path:      path,
		Filename:  filename,
		Workspace: workspace,
	}

	var resp SuggestResponse
	if err := c.Request(ctx, "resolve", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signify requests signature information for the call at the cursor.
func (c *Client) Signify(ctx context.Context, text string, line, column int, filename, workspace string) (*SuggestResponse, error) {
	params := Params{
		Text:      &text,
		Line:      &line,
		Column:    &column,
		Filename:  filename,
		Workspace: workspace,
	}

	var resp SuggestResponse
	if err := c.Request(ctx, "signify", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
