package scaffolding

// componentTemplate is the skeleton written by the new command. Every
// selector is qualified with the random scope attribute so styles of
// different components cannot collide.
const componentTemplate = `<component name="{{.Name}}">
    <!--///////////////////////////////////////////////////////////////////////
      -
      - TEMPLATE
      -
      -/////////////////////////////////////////////////////////////////////-->
    <template>
        <div class="{{.Name}}" data-css-scope-{{.Scope}}=""></div>
    </template>

    <!--///////////////////////////////////////////////////////////////////////
      -
      - SCRIPT
      -
      -/////////////////////////////////////////////////////////////////////-->
    <script>
        <![CDATA[

class {{.ClassName}} {

    constructor(context) {
        this.context = context;
        this.tree = this.render(context);
    }

    render(context) {
        var template = Handlebars.templates["{{.Name}}"];
        return $(template(context));
    }

    mount(element) {
        element.replaceWith(this.tree);
    }
}
        ]]>
    </script>

    <!--///////////////////////////////////////////////////////////////////////
      -
      - STYLE
      -
      -/////////////////////////////////////////////////////////////////////-->
    <style>
        <![CDATA[

.{{.Name}}[data-css-scope-{{.Scope}}] {
    // Component CSS here
}

        ]]>
    </style>
</component>
`

// TemplateContext holds the context for template generation
type TemplateContext struct {
	Name      string
	ClassName string
	Scope     string
}
